package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faketect/faketect/internal/domain"
)

func TestVerdictLabel_Language(t *testing.T) {
	testCases := []struct {
		name           string
		acceptLanguage string
		key            domain.VerdictKey
		expected       string
	}{
		{"no header defaults to french", "", domain.VerdictAIGenerated, "Généré par IA"},
		{"french", "fr-FR,fr;q=0.9", domain.VerdictAIGenerated, "Généré par IA"},
		{"english", "en-US,en;q=0.9", domain.VerdictAIGenerated, "AI generated"},
		{"english likely real", "en", domain.VerdictLikelyReal, "Likely real"},
		{"unsupported falls back to french", "de-DE", domain.VerdictLikelyAI, "Probablement IA"},
		{"garbage header defaults to french", ";;;", domain.VerdictPossiblyAI, "Possiblement IA"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
			if tc.acceptLanguage != "" {
				r.Header.Set("Accept-Language", tc.acceptLanguage)
			}
			if got := verdictLabel(r, tc.key); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestVerdictLabel_AllKeysCovered(t *testing.T) {
	keys := []domain.VerdictKey{
		domain.VerdictAIGenerated,
		domain.VerdictLikelyAI,
		domain.VerdictPossiblyAI,
		domain.VerdictPossiblyReal,
		domain.VerdictLikelyReal,
	}

	for _, key := range keys {
		if verdictLabelsFR[key] == "" {
			t.Errorf("missing french label for %s", key)
		}
		if verdictLabelsEN[key] == "" {
			t.Errorf("missing english label for %s", key)
		}
	}
}
