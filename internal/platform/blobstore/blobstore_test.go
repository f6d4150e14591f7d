package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMemoryStore_Put(t *testing.T) {
	store := NewMemoryStore(0)
	content := "fake-jpeg-bytes"

	meta, err := store.Put(context.Background(), Metadata{FileName: "rx.jpg", ContentType: "image/jpeg"}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if meta.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), meta.Size)
	}
	if want := fmt.Sprintf("%x", sha256.Sum256([]byte(content))); meta.Hash != want {
		t.Errorf("expected hash %s, got %s", want, meta.Hash)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestMemoryStore_GetRoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	meta, err := store.Put(ctx, Metadata{FileName: "rx.png", ContentType: "image/png"}, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	data, got, err := store.Get(ctx, meta.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("unexpected content %q", data)
	}
	if got.FileName != "rx.png" || got.ContentType != "image/png" {
		t.Errorf("unexpected metadata %+v", got)
	}

	// Mutating the returned slice must not affect the stored blob.
	data[0] = 'X'
	again, _, _ := store.Get(ctx, meta.ID)
	if string(again) != "png" {
		t.Errorf("stored content was modified: %q", again)
	}
}

func TestMemoryStore_RejectsNonImage(t *testing.T) {
	store := NewMemoryStore(0)
	for _, ct := range []string{"application/pdf", "text/plain", "", "not a type"} {
		_, err := store.Put(context.Background(), Metadata{FileName: "x", ContentType: ct}, strings.NewReader("x"))
		if !errors.Is(err, ErrInvalidContentType) {
			t.Errorf("content type %q: expected ErrInvalidContentType, got %v", ct, err)
		}
	}
}

func TestMemoryStore_TooLarge(t *testing.T) {
	store := NewMemoryStore(8)
	_, err := store.Put(context.Background(), Metadata{FileName: "big.jpg", ContentType: "image/jpeg"}, bytes.NewReader(make([]byte, 9)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}

	if _, err := store.Put(context.Background(), Metadata{FileName: "ok.jpg", ContentType: "image/jpeg"}, bytes.NewReader(make([]byte, 8))); err != nil {
		t.Errorf("expected exactly max size to be accepted, got %v", err)
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	store := NewMemoryStore(0)
	_, err := store.Put(context.Background(), Metadata{FileName: "e.jpg", ContentType: "image/jpeg"}, strings.NewReader(""))
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	meta, _ := store.Put(ctx, Metadata{FileName: "rx.jpg", ContentType: "image/jpeg"}, strings.NewReader("a"))

	if err := store.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Get(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound on second delete, got %v", err)
	}
}

func TestMemoryStore_ConcurrentPut(t *testing.T) {
	store := NewMemoryStore(0)
	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta, err := store.Put(context.Background(), Metadata{FileName: "c.jpg", ContentType: "image/jpeg"}, strings.NewReader(fmt.Sprint(i)))
			if err != nil {
				t.Errorf("put %d: %v", i, err)
				return
			}
			ids <- meta.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != 50 {
		t.Errorf("expected 50 blobs, got %d", len(seen))
	}
}

func TestValidateImageType(t *testing.T) {
	tests := []struct {
		ct string
		ok bool
	}{
		{"image/jpeg", true},
		{"image/png; charset=binary", true},
		{"IMAGE/HEIC", true},
		{"application/octet-stream", false},
		{"imagex/png", false},
	}
	for _, tt := range tests {
		err := ValidateImageType(tt.ct)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateImageType(%q) = %v, want ok=%v", tt.ct, err, tt.ok)
		}
	}
}
