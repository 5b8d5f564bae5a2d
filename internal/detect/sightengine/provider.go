// Package sightengine implements image and video AI-content detection using
// the Sightengine API.
package sightengine

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

const (
	// ImageCheckURL is the synchronous image moderation endpoint.
	ImageCheckURL = "https://api.sightengine.com/1.0/check.json"

	// VideoCheckURL is the synchronous video moderation endpoint. Videos are
	// scored frame by frame.
	VideoCheckURL = "https://api.sightengine.com/1.0/video/check-sync.json"

	// genaiModel is the Sightengine model that scores AI generation.
	genaiModel = "genai"

	// MaxMediaSize is the largest payload forwarded to the vendor (100MB).
	MaxMediaSize = 100 * 1024 * 1024
)

// Config contains the Sightengine credentials.
type Config struct {
	APIUser   string
	APISecret string
}

// Provider implements detect.ImageProvider and detect.VideoProvider.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Sightengine provider. Both credentials are required; their
// absence means the provider should simply not be constructed.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIUser == "" || config.APISecret == "" {
		return nil, fmt.Errorf("sightengine credentials are required")
	}
	return &Provider{
		config: config,
		// Per-call deadlines come from the caller's context; the client
		// itself carries no timeout so video calls are not cut short.
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Name returns the provider identifier used in verdict sources.
func (p *Provider) Name() string { return "sightengine" }

// DetectImage scores a still image for AI generation.
func (p *Provider) DetectImage(ctx context.Context, in detect.Input) (*detect.Result, error) {
	if len(in.Content) == 0 || len(in.Content) > MaxMediaSize {
		return nil, detect.WrapError("image", detect.ErrInvalidMedia)
	}

	body, err := p.call(ctx, ImageCheckURL, in)
	if err != nil {
		return nil, detect.WrapError("image", err)
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, detect.WrapError("image", fmt.Errorf("unmarshal response: %w", err))
	}
	if resp.Status != "success" {
		return nil, detect.WrapError("image", fmt.Errorf("vendor status %q: %s", resp.Status, resp.Error.Message))
	}

	score := resp.Type.AIGenerated * 100
	return &detect.Result{
		Provider:   p.Name(),
		AIScore:    score,
		IsAI:       score >= 50,
		Confidence: score,
		Raw:        body,
	}, nil
}

// DetectVideo scores a video by averaging the per-frame AI probability over
// every analyzed frame. A zero-frame response is an error so the caller can
// fall back.
func (p *Provider) DetectVideo(ctx context.Context, in detect.Input) (*detect.Result, error) {
	if len(in.Content) == 0 || len(in.Content) > MaxMediaSize {
		return nil, detect.WrapError("video", detect.ErrInvalidMedia)
	}

	body, err := p.call(ctx, VideoCheckURL, in)
	if err != nil {
		return nil, detect.WrapError("video", err)
	}

	var resp videoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, detect.WrapError("video", fmt.Errorf("unmarshal response: %w", err))
	}
	if resp.Status != "success" {
		return nil, detect.WrapError("video", fmt.Errorf("vendor status %q: %s", resp.Status, resp.Error.Message))
	}
	if len(resp.Data.Frames) == 0 {
		return nil, detect.WrapError("video", detect.ErrNoFrames)
	}

	var sum float64
	for _, frame := range resp.Data.Frames {
		sum += frame.Type.AIGenerated
	}
	score := sum / float64(len(resp.Data.Frames)) * 100

	return &detect.Result{
		Provider:       p.Name(),
		AIScore:        score,
		IsAI:           score >= 50,
		FramesAnalyzed: len(resp.Data.Frames),
		Raw:            body,
	}, nil
}

// call posts the media as multipart form data and returns the raw body.
func (p *Provider) call(ctx context.Context, url string, in detect.Input) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("models", genaiModel); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := mw.WriteField("api_user", p.config.APIUser); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := mw.WriteField("api_secret", p.config.APISecret); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	part, err := mw.CreateFormFile("media", in.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(in.Content); err != nil {
		return nil, fmt.Errorf("write media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		// Network and deadline errors are both "vendor unreachable" here.
		return nil, detect.ErrUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, detect.ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, detect.ErrRateLimited
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return nil, detect.ErrInvalidMedia
	default:
		return nil, fmt.Errorf("vendor error (status %d): %w", resp.StatusCode, detect.ErrUnavailable)
	}
}

// Vendor payload types

type imageResponse struct {
	Status string `json:"status"`
	Type   struct {
		AIGenerated float64 `json:"ai_generated"`
	} `json:"type"`
	Error vendorError `json:"error"`
}

type videoResponse struct {
	Status string `json:"status"`
	Data   struct {
		Frames []videoFrame `json:"frames"`
	} `json:"data"`
	Error vendorError `json:"error"`
}

type videoFrame struct {
	Info struct {
		Position float64 `json:"position"`
	} `json:"info"`
	Type struct {
		AIGenerated float64 `json:"ai_generated"`
	} `json:"type"`
}

type vendorError struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
