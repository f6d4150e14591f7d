package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const DefaultVisionEndpoint = "https://vision.googleapis.com"

// languageHints bias detection toward Korean prescriptions with English drug
// names mixed in.
var languageHints = []string{"ko", "en"}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image        imagePayload  `json:"image"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type imagePayload struct {
	// Content is base64-encoded by encoding/json.
	Content []byte `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	TextAnnotations []textAnnotation `json:"textAnnotations"`
	Error           *apiStatus       `json:"error,omitempty"`
}

type textAnnotation struct {
	Description string `json:"description"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// VisionClient calls the Google Cloud Vision images:annotate REST endpoint
// with TEXT_DETECTION. Calls are never retried.
type VisionClient struct {
	http   *resty.Client
	apiKey string
	logger zerolog.Logger
}

func NewVisionClient(endpoint, apiKey string, timeout time.Duration, logger zerolog.Logger) *VisionClient {
	if endpoint == "" {
		endpoint = DefaultVisionEndpoint
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &VisionClient{
		http:   client,
		apiKey: apiKey,
		logger: logger.With().Str("component", "ocr").Logger(),
	}
}

// Recognize returns the full-text annotation of image. The result is the
// provider's first text annotation, which covers the whole image.
func (c *VisionClient) Recognize(ctx context.Context, image []byte) (string, error) {
	body := annotateRequest{Requests: []imageRequest{{
		Image:        imagePayload{Content: image},
		Features:     []feature{{Type: "TEXT_DETECTION"}},
		ImageContext: &imageContext{LanguageHints: languageHints},
	}}}

	var out annotateResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&out).
		Post("/v1/images:annotate")
	if err != nil {
		c.logger.Error().Err(err).Msg("vision request failed")
		return "", &RecognitionError{Err: err}
	}
	if resp.IsError() {
		c.logger.Error().Int("status", resp.StatusCode()).Msg("vision returned an error status")
		return "", &RecognitionError{
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected response: %s", truncate(resp.String(), 200)),
		}
	}
	if len(out.Responses) == 0 {
		return "", &RecognitionError{StatusCode: resp.StatusCode(), Err: errors.New("empty response")}
	}

	r := out.Responses[0]
	if r.Error != nil {
		c.logger.Error().Int("code", r.Error.Code).Str("message", r.Error.Message).Msg("vision reported an error")
		return "", &RecognitionError{
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message),
		}
	}
	if len(r.TextAnnotations) == 0 {
		return "", &RecognitionError{StatusCode: resp.StatusCode(), Err: ErrNoTextDetected}
	}

	text := r.TextAnnotations[0].Description
	c.logger.Debug().
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("text recognized")
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
