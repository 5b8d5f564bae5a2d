// Package illuminarty implements image AI-content detection using the
// Illuminarty API.
package illuminarty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/faketect/faketect/internal/detect"
)

// ClassifyURL is the image classification endpoint.
const ClassifyURL = "https://api.illuminarty.ai/v1/image/classification"

// Provider implements detect.ImageProvider.
type Provider struct {
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// New creates an Illuminarty provider.
func New(apiKey string, logger *slog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("illuminarty API key is required")
	}
	return &Provider{
		apiKey: apiKey,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Name returns the provider identifier used in verdict sources.
func (p *Provider) Name() string { return "illuminarty" }

// DetectImage scores a still image for AI generation. The vendor returns a
// probability in [0,1] which is scaled to [0,100].
func (p *Provider) DetectImage(ctx context.Context, in detect.Input) (*detect.Result, error) {
	if len(in.Content) == 0 {
		return nil, detect.WrapError("image", detect.ErrInvalidMedia)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", in.Filename)
	if err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(in.Content); err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("write media: %w", err))
	}
	if err := mw.Close(); err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("close multipart: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ClassifyURL, &buf)
	if err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, detect.WrapError("image", detect.ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("read response body: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, detect.WrapError("image", detect.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return nil, detect.WrapError("image", detect.ErrRateLimited)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return nil, detect.WrapError("image", detect.ErrInvalidMedia)
	default:
		return nil, detect.WrapError("image", fmt.Errorf("vendor error (status %d): %w", resp.StatusCode, detect.ErrUnavailable))
	}

	var payload classifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("unmarshal response: %w", err))
	}

	score := payload.Probability * 100
	return &detect.Result{
		Provider:   p.Name(),
		AIScore:    score,
		IsAI:       score >= 50,
		Confidence: score,
		Raw:        body,
	}, nil
}

type classifyResponse struct {
	Probability float64 `json:"probability"`
}
