package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictForScore_Buckets(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		wantKey   VerdictKey
		wantColor VerdictColor
	}{
		// Boundary values are inclusive on the lower bound of each bucket
		{"exactly 90", 90, VerdictAIGenerated, ColorRed},
		{"just below 90", 89.9, VerdictLikelyAI, ColorOrange},
		{"exactly 70", 70, VerdictLikelyAI, ColorOrange},
		{"just below 70", 69.9, VerdictPossiblyAI, ColorYellow},
		{"exactly 50", 50, VerdictPossiblyAI, ColorYellow},
		{"just below 50", 49.9, VerdictPossiblyReal, ColorLime},
		{"exactly 30", 30, VerdictPossiblyReal, ColorLime},
		{"just below 30", 29.9, VerdictLikelyReal, ColorGreen},

		// Extremes
		{"zero", 0, VerdictLikelyReal, ColorGreen},
		{"hundred", 100, VerdictAIGenerated, ColorRed},

		// Mid-bucket values
		{"mid ai_generated", 95.5, VerdictAIGenerated, ColorRed},
		{"mid likely_ai", 80, VerdictLikelyAI, ColorOrange},
		{"mid possibly_ai", 60, VerdictPossiblyAI, ColorYellow},
		{"mid possibly_real", 40, VerdictPossiblyReal, ColorLime},
		{"mid likely_real", 15, VerdictLikelyReal, ColorGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VerdictForScore(tt.score)
			assert.Equal(t, tt.wantKey, v.Key)
			assert.Equal(t, tt.wantColor, v.Color)
		})
	}
}

func TestVerdictForScore_Total(t *testing.T) {
	// The five buckets partition [0,100] with no gaps: every score maps to
	// exactly one known key.
	known := map[VerdictKey]bool{
		VerdictAIGenerated:  true,
		VerdictLikelyAI:     true,
		VerdictPossiblyAI:   true,
		VerdictPossiblyReal: true,
		VerdictLikelyReal:   true,
	}
	for s := 0.0; s <= 100.0; s += 0.25 {
		v := VerdictForScore(s)
		assert.True(t, known[v.Key], "score %v mapped to unknown key %q", s, v.Key)
	}
}
