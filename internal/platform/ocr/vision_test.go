package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVision(t *testing.T, handler http.HandlerFunc) *VisionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVisionClient(srv.URL, "test-key", 2*time.Second, zerolog.Nop())
}

func TestVisionClient_Recognize(t *testing.T) {
	var got annotateRequest
	client := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"textAnnotations":[
			{"description":"약품명: 아스피린\n1일 2회"},
			{"description":"약품명:"}
		]}]}`)
	})

	text, err := client.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "약품명: 아스피린\n1일 2회", text)

	require.Len(t, got.Requests, 1)
	req := got.Requests[0]
	assert.Equal(t, []byte("img"), req.Image.Content)
	require.Len(t, req.Features, 1)
	assert.Equal(t, "TEXT_DETECTION", req.Features[0].Type)
	require.NotNil(t, req.ImageContext)
	assert.Equal(t, []string{"ko", "en"}, req.ImageContext.LanguageHints)
}

func TestVisionClient_NoText(t *testing.T) {
	client := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{}]}`)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))
	var recErr *RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.ErrorIs(t, err, ErrNoTextDetected)
}

func TestVisionClient_HTTPError(t *testing.T) {
	var calls atomic.Int32
	client := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"API key not valid"}}`)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))
	var recErr *RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, http.StatusForbidden, recErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "failed calls must not be retried")
}

func TestVisionClient_ResponseLevelError(t *testing.T) {
	client := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))
	var recErr *RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.Contains(t, err.Error(), "Bad image data.")
}

func TestVisionClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	client := NewVisionClient(srv.URL, "k", 20*time.Millisecond, zerolog.Nop())

	_, err := client.Recognize(context.Background(), []byte("img"))
	var recErr *RecognitionError
	assert.True(t, errors.As(err, &recErr))
}

func TestVisionClient_CancelledContext(t *testing.T) {
	client := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"responses":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Recognize(ctx, []byte("img"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisabledRecognizer(t *testing.T) {
	_, err := DisabledRecognizer{}.Recognize(context.Background(), nil)
	var recErr *RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRecognizerFunc(t *testing.T) {
	r := RecognizerFunc(func(_ context.Context, image []byte) (string, error) {
		return string(image), nil
	})
	text, err := r.Recognize(context.Background(), []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}
