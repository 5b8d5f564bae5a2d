package handler

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/faketect/faketect/internal/domain"
)

// verdictMatcher picks the response language for verdict labels.
// French first: the detection providers report consensus in French and the
// original user base is French-speaking. English serves everyone else.
var verdictMatcher = language.NewMatcher([]language.Tag{
	language.French,
	language.English,
})

var verdictLabelsFR = map[domain.VerdictKey]string{
	domain.VerdictAIGenerated:  "Généré par IA",
	domain.VerdictLikelyAI:     "Probablement IA",
	domain.VerdictPossiblyAI:   "Possiblement IA",
	domain.VerdictPossiblyReal: "Possiblement authentique",
	domain.VerdictLikelyReal:   "Probablement authentique",
}

var verdictLabelsEN = map[domain.VerdictKey]string{
	domain.VerdictAIGenerated:  "AI generated",
	domain.VerdictLikelyAI:     "Likely AI",
	domain.VerdictPossiblyAI:   "Possibly AI",
	domain.VerdictPossiblyReal: "Possibly real",
	domain.VerdictLikelyReal:   "Likely real",
}

// verdictLabel returns the display label for a verdict in the request's
// preferred language.
func verdictLabel(r *http.Request, key domain.VerdictKey) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return verdictLabelsFR[key]
	}
	_, index, _ := verdictMatcher.Match(tags...)
	if index == 1 {
		return verdictLabelsEN[key]
	}
	return verdictLabelsFR[key]
}
