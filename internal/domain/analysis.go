// Package domain contains core business types and interfaces.
//
// This file defines the Analysis record: one uploaded media file and the
// detection verdict produced for it.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType classifies an upload by its MIME prefix.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeText  MediaType = "text"
)

// MediaTypeFor classifies a declared MIME type. Anything that is not video
// or text is treated as image/generic.
func MediaTypeFor(mimeType string) MediaType {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mimeType, "text/"):
		return MediaTypeText
	default:
		return MediaTypeImage
	}
}

// AnalysisStatus represents the lifecycle state of an analysis record.
type AnalysisStatus string

const (
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// ProviderSource is the per-provider summary attached to a combined verdict.
type ProviderSource struct {
	Provider   string  `json:"provider"`
	AIScore    float64 `json:"ai_score"`
	Confidence float64 `json:"confidence"`
	IsAI       bool    `json:"is_ai"`
}

// Analysis is a persisted detection result for one uploaded file.
type Analysis struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Filename       string
	MimeType       string
	MediaType      MediaType
	SizeBytes      int64
	StorageKey     string
	ThumbnailKey   string // empty for non-image uploads
	AIScore        float64
	IsAI           bool
	Confidence     float64
	Verdict        Verdict
	Provider       string // "combined", a single provider name, or "demo-<type>"
	Demo           bool
	Consensus      string // e.g. "2/2 APIs détectent de l'IA"; empty for single-provider results
	Sources        []ProviderSource
	FramesAnalyzed int // video only
	Status         AnalysisStatus
	CreatedAt      time.Time
}

// SourcesJSON marshals the provider sources for jsonb storage. Returns nil
// when there are no sources.
func (a *Analysis) SourcesJSON() json.RawMessage {
	if len(a.Sources) == 0 {
		return nil
	}
	data, err := json.Marshal(a.Sources)
	if err != nil {
		return nil
	}
	return data
}
