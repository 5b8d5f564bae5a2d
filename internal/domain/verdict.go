// Package domain contains core business types and interfaces.
//
// This file defines the verdict mapper: the pure function that converts a
// numeric AI score into one of five ordered severity buckets.
package domain

// VerdictKey is the discrete label derived from an AI score.
type VerdictKey string

const (
	VerdictAIGenerated  VerdictKey = "ai_generated"
	VerdictLikelyAI     VerdictKey = "likely_ai"
	VerdictPossiblyAI   VerdictKey = "possibly_ai"
	VerdictPossiblyReal VerdictKey = "possibly_real"
	VerdictLikelyReal   VerdictKey = "likely_real"
)

// VerdictColor is the severity color associated with a verdict bucket.
type VerdictColor string

const (
	ColorRed    VerdictColor = "red"
	ColorOrange VerdictColor = "orange"
	ColorYellow VerdictColor = "yellow"
	ColorLime   VerdictColor = "lime"
	ColorGreen  VerdictColor = "green"
)

// Verdict is the bucket label for an AI score. It is derived, never stored
// independently of the score that produced it.
type Verdict struct {
	Key   VerdictKey   `json:"key"`
	Color VerdictColor `json:"color"`
}

// VerdictForScore maps a 0-100 AI score to its verdict bucket.
//
// Buckets are evaluated top-down with inclusive lower bounds: a score of
// exactly 90 is ai_generated, exactly 70 likely_ai, exactly 50 possibly_ai,
// exactly 30 possibly_real.
func VerdictForScore(score float64) Verdict {
	switch {
	case score >= 90:
		return Verdict{Key: VerdictAIGenerated, Color: ColorRed}
	case score >= 70:
		return Verdict{Key: VerdictLikelyAI, Color: ColorOrange}
	case score >= 50:
		return Verdict{Key: VerdictPossiblyAI, Color: ColorYellow}
	case score >= 30:
		return Verdict{Key: VerdictPossiblyReal, Color: ColorLime}
	default:
		return Verdict{Key: VerdictLikelyReal, Color: ColorGreen}
	}
}
