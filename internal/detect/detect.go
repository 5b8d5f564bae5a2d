// Package detect defines the AI-content detection provider interfaces and
// the aggregator that combines provider outputs into a single verdict.
package detect

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Timeouts for outbound provider calls. Video analysis is slower because
// vendors decode and score individual frames.
const (
	ImageTimeout = 15 * time.Second
	VideoTimeout = 45 * time.Second
	TextTimeout  = 15 * time.Second
)

// videoConfidence is the fixed confidence attached to video results. It is
// not computed from frame variance or provider agreement.
const videoConfidence = 80

// demoConfidence is the fixed confidence attached to placeholder results.
const demoConfidence = 70

// Input is one media payload handed to the aggregator. It is created at
// upload time, consumed once, and discarded.
type Input struct {
	Content  []byte // raw file bytes
	MimeType string // declared MIME type
	Filename string // original filename, used only for provider payload metadata
}

// Result is the output of a single provider call.
type Result struct {
	Provider       string
	AIScore        float64 // 0-100
	IsAI           bool    // AIScore >= 50 for single-provider results
	Confidence     float64 // 0-100
	FramesAnalyzed int     // video only
	Raw            []byte  // raw provider payload, for persistence/debugging
}

// ImageProvider detects AI generation in still images.
type ImageProvider interface {
	Name() string
	DetectImage(ctx context.Context, in Input) (*Result, error)
}

// VideoProvider detects AI generation in videos by scoring frames.
type VideoProvider interface {
	Name() string
	DetectVideo(ctx context.Context, in Input) (*Result, error)
}

// TextProvider detects AI generation in plain text.
type TextProvider interface {
	Name() string
	DetectText(ctx context.Context, text string) (*Result, error)
}

// Provider errors. All of these are recovered inside the aggregator and
// never reach its caller.
var (
	// ErrUnavailable indicates the vendor is temporarily unreachable.
	ErrUnavailable = errors.New("detection provider unavailable")

	// ErrRateLimited indicates the vendor rate limit was exceeded.
	ErrRateLimited = errors.New("detection provider rate limit exceeded")

	// ErrUnauthorized indicates invalid vendor credentials.
	ErrUnauthorized = errors.New("detection provider authentication failed")

	// ErrInvalidMedia indicates the payload was rejected by the vendor.
	ErrInvalidMedia = errors.New("invalid media for detection")

	// ErrNoFrames indicates a video response contained zero analyzed frames.
	ErrNoFrames = errors.New("video response contained no analyzed frames")
)

// WrapError adds operation context to a provider error.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("detect %s: %w", operation, err)
}
