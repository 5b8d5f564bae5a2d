// Package mock provides a configurable detection provider for testing and
// local development.
package mock

import (
	"context"

	"github.com/faketect/faketect/internal/detect"
)

// Provider is a mock detection provider. It implements all three provider
// interfaces so a single instance can stand in for any vendor.
type Provider struct {
	// ProviderName is reported in results. Defaults to "mock".
	ProviderName string

	// Configurable responses for testing
	ImageResponse *detect.Result
	ImageError    error
	VideoResponse *detect.Result
	VideoError    error
	TextResponse  *detect.Result
	TextError     error

	// Call tracking for testing
	ImageCalls int
	VideoCalls int
	TextCalls  int
}

// New creates a new mock provider.
func New(name string) *Provider {
	if name == "" {
		name = "mock"
	}
	return &Provider{ProviderName: name}
}

// Name returns the configured provider identifier.
func (p *Provider) Name() string { return p.ProviderName }

// DetectImage returns the configured response or a canned mid-range result.
func (p *Provider) DetectImage(ctx context.Context, in detect.Input) (*detect.Result, error) {
	p.ImageCalls++

	if p.ImageError != nil {
		return nil, p.ImageError
	}
	if p.ImageResponse != nil {
		r := *p.ImageResponse
		r.Provider = p.ProviderName
		return &r, nil
	}

	return &detect.Result{
		Provider:   p.ProviderName,
		AIScore:    42,
		IsAI:       false,
		Confidence: 42,
	}, nil
}

// DetectVideo returns the configured response or a canned result.
func (p *Provider) DetectVideo(ctx context.Context, in detect.Input) (*detect.Result, error) {
	p.VideoCalls++

	if p.VideoError != nil {
		return nil, p.VideoError
	}
	if p.VideoResponse != nil {
		r := *p.VideoResponse
		r.Provider = p.ProviderName
		return &r, nil
	}

	return &detect.Result{
		Provider:       p.ProviderName,
		AIScore:        42,
		IsAI:           false,
		FramesAnalyzed: 8,
	}, nil
}

// DetectText returns the configured response or a canned result.
func (p *Provider) DetectText(ctx context.Context, text string) (*detect.Result, error) {
	p.TextCalls++

	if p.TextError != nil {
		return nil, p.TextError
	}
	if p.TextResponse != nil {
		r := *p.TextResponse
		r.Provider = p.ProviderName
		return &r, nil
	}

	return &detect.Result{
		Provider:   p.ProviderName,
		AIScore:    42,
		IsAI:       false,
		Confidence: 42,
	}, nil
}

// Reset clears call counters and custom responses.
func (p *Provider) Reset() {
	p.ImageCalls, p.VideoCalls, p.TextCalls = 0, 0, 0
	p.ImageResponse, p.ImageError = nil, nil
	p.VideoResponse, p.VideoError = nil, nil
	p.TextResponse, p.TextError = nil, nil
}
