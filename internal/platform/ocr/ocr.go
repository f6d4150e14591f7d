// Package ocr turns prescription photos into raw text.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Recognizer extracts all text visible in an image. Implementations must be
// safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

var (
	ErrNoTextDetected = errors.New("no text detected in image")
	ErrNotConfigured  = errors.New("text recognition is not configured")
)

// RecognitionError is returned for every failed recognition. StatusCode is the
// provider's HTTP status when one was received.
type RecognitionError struct {
	StatusCode int
	Err        error
}

func (e *RecognitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("text recognition failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("text recognition failed: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// DisabledRecognizer is used when no provider credentials are configured.
type DisabledRecognizer struct{}

func (DisabledRecognizer) Recognize(context.Context, []byte) (string, error) {
	return "", &RecognitionError{Err: ErrNotConfigured}
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
