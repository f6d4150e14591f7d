// Package blobstore keeps the original bytes of uploaded prescription images.
// Uploads reference a blob by its id, which doubles as the upload's storage
// locator.
package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("only image files are allowed")
	ErrEmptyContent       = errors.New("file is empty")
)

// DefaultMaxSize is the upload limit used when a store is built with a
// non-positive size (10 MB).
const DefaultMaxSize = 10 << 20

// Metadata describes a stored blob.
type Metadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is implemented by every blob backend.
type Store interface {
	Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error)
	Get(ctx context.Context, id string) ([]byte, *Metadata, error)
	Delete(ctx context.Context, id string) error
}

// ValidateImageType accepts any image/* media type, with or without
// parameters.
func ValidateImageType(contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return ErrInvalidContentType
	}
	return nil
}

// readLimited reads content and fills in size and hash. It rejects anything
// over maxSize without buffering more than maxSize+1 bytes.
func readLimited(meta *Metadata, content io.Reader, maxSize int64) ([]byte, error) {
	if err := ValidateImageType(meta.ContentType); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyContent
	}

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", sha256.Sum256(data))
	return data, nil
}

type storedBlob struct {
	metadata Metadata
	content  []byte
}

// MemoryStore is a thread-safe Store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	maxSize int64
	blobs   map[string]*storedBlob
}

func NewMemoryStore(maxSize int64) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{maxSize: maxSize, blobs: make(map[string]*storedBlob)}
}

func (s *MemoryStore) Put(_ context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	data, err := readLimited(&meta, content, s.maxSize)
	if err != nil {
		return nil, err
	}
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[meta.ID] = &storedBlob{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Get returns a copy of the blob content.
func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, *Metadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	data := make([]byte, len(blob.content))
	copy(data, blob.content)
	meta := blob.metadata
	return data, &meta, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}
