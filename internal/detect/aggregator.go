package detect

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/metrics"
)

// CombinedVerdict is the aggregator's output. It is always produced, even
// when every provider fails: callers must check Demo to distinguish a real
// verdict from placeholder data.
type CombinedVerdict struct {
	AIScore        float64
	IsAI           bool
	Confidence     float64
	Verdict        domain.Verdict
	Provider       string // "combined", a single provider name, or "demo-<type>"
	Demo           bool
	Consensus      string // "<aiCount>/<n> APIs détectent de l'IA" for combined results
	Sources        []domain.ProviderSource
	FramesAnalyzed int
}

// Aggregator fans an analysis request out to the configured providers and
// combines their outputs. Which providers are dispatched is a configuration
// decision made at construction time, not a per-call parameter.
type Aggregator struct {
	image  []ImageProvider // at most two are dispatched
	video  VideoProvider   // optional
	text   TextProvider    // optional
	logger *slog.Logger

	// randScore produces placeholder scores; injected so tests can pin it.
	randScore func() float64
}

// NewAggregator builds an aggregator over the configured providers. Any of
// the provider arguments may be nil/empty; an unconfigured deployment
// degrades to placeholder verdicts.
func NewAggregator(image []ImageProvider, video VideoProvider, text TextProvider, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		image:     image,
		video:     video,
		text:      text,
		logger:    logger,
		randScore: func() float64 { return rand.Float64() * 100 },
	}
}

// Analyze produces a verdict for one media payload. It never returns an
// error: provider failures are logged and absorbed, degrading to fewer
// providers or to a placeholder result.
func (a *Aggregator) Analyze(ctx context.Context, in Input) *CombinedVerdict {
	var v *CombinedVerdict
	switch domain.MediaTypeFor(in.MimeType) {
	case domain.MediaTypeVideo:
		v = a.analyzeVideo(ctx, in)
	case domain.MediaTypeText:
		v = a.analyzeText(ctx, in)
	default:
		v = a.analyzeImage(ctx, in)
	}
	v.Verdict = domain.VerdictForScore(v.AIScore)
	if v.Demo {
		metrics.DemoFallbacks.WithLabelValues(v.Provider).Inc()
	}
	return v
}

// analyzeImage dispatches up to two image providers concurrently, each with
// its own timeout, and combines whatever succeeded.
func (a *Aggregator) analyzeImage(ctx context.Context, in Input) *CombinedVerdict {
	providers := a.image
	if len(providers) > 2 {
		providers = providers[:2]
	}
	if len(providers) == 0 {
		return a.demo("demo-image")
	}

	results := make([]*Result, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p ImageProvider) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, ImageTimeout)
			defer cancel()

			res, err := p.DetectImage(callCtx, in)
			if err != nil {
				// A failing provider never blocks the other one.
				a.logger.Warn("image provider failed", "provider", p.Name(), "error", err)
				metrics.ProviderCalls.WithLabelValues(p.Name(), "error").Inc()
				return
			}
			metrics.ProviderCalls.WithLabelValues(p.Name(), "ok").Inc()
			results[i] = res
		}(i, p)
	}
	wg.Wait()

	succeeded := results[:0:0]
	for _, r := range results {
		if r != nil {
			succeeded = append(succeeded, r)
		}
	}
	if len(succeeded) == 0 {
		return a.demo("demo-image")
	}
	return combine(succeeded)
}

// analyzeVideo calls the single video-capable provider, falling back to a
// placeholder on any failure including a zero-frame response.
func (a *Aggregator) analyzeVideo(ctx context.Context, in Input) *CombinedVerdict {
	if a.video == nil {
		return a.demo("demo-video")
	}

	callCtx, cancel := context.WithTimeout(ctx, VideoTimeout)
	defer cancel()

	res, err := a.video.DetectVideo(callCtx, in)
	if err != nil {
		a.logger.Warn("video provider failed", "provider", a.video.Name(), "error", err)
		metrics.ProviderCalls.WithLabelValues(a.video.Name(), "error").Inc()
		return a.demo("demo-video")
	}
	if res.FramesAnalyzed == 0 || math.IsNaN(res.AIScore) {
		a.logger.Warn("video provider returned no frames", "provider", a.video.Name())
		metrics.ProviderCalls.WithLabelValues(a.video.Name(), "error").Inc()
		return a.demo("demo-video")
	}
	metrics.ProviderCalls.WithLabelValues(a.video.Name(), "ok").Inc()

	score := round2(res.AIScore)
	return &CombinedVerdict{
		AIScore:        score,
		IsAI:           score >= 50,
		Confidence:     videoConfidence,
		Provider:       res.Provider,
		FramesAnalyzed: res.FramesAnalyzed,
	}
}

// analyzeText calls the text provider with single-provider semantics.
func (a *Aggregator) analyzeText(ctx context.Context, in Input) *CombinedVerdict {
	if a.text == nil {
		return a.demo("demo-text")
	}

	callCtx, cancel := context.WithTimeout(ctx, TextTimeout)
	defer cancel()

	res, err := a.text.DetectText(callCtx, string(in.Content))
	if err != nil {
		a.logger.Warn("text provider failed", "provider", a.text.Name(), "error", err)
		metrics.ProviderCalls.WithLabelValues(a.text.Name(), "error").Inc()
		return a.demo("demo-text")
	}
	metrics.ProviderCalls.WithLabelValues(a.text.Name(), "ok").Inc()

	score := round2(res.AIScore)
	return &CombinedVerdict{
		AIScore:    score,
		IsAI:       score >= 50,
		Confidence: round2(res.Confidence),
		Provider:   res.Provider,
	}
}

// combine merges successful provider results: simple arithmetic mean of
// score and confidence, strict majority vote for isAi. A 50/50 vote split
// resolves to false; this deliberately diverges from the single-provider
// score>=50 rule at tie boundaries.
func combine(results []*Result) *CombinedVerdict {
	if len(results) == 1 {
		r := results[0]
		score := round2(r.AIScore)
		return &CombinedVerdict{
			AIScore:    score,
			IsAI:       score >= 50,
			Confidence: round2(r.Confidence),
			Provider:   r.Provider,
			Sources: []domain.ProviderSource{{
				Provider:   r.Provider,
				AIScore:    round2(r.AIScore),
				Confidence: round2(r.Confidence),
				IsAI:       r.IsAI,
			}},
		}
	}

	var scoreSum, confSum float64
	aiVotes := 0
	sources := make([]domain.ProviderSource, 0, len(results))
	for _, r := range results {
		scoreSum += r.AIScore
		confSum += r.Confidence
		if r.IsAI {
			aiVotes++
		}
		sources = append(sources, domain.ProviderSource{
			Provider:   r.Provider,
			AIScore:    round2(r.AIScore),
			Confidence: round2(r.Confidence),
			IsAI:       r.IsAI,
		})
	}

	n := len(results)
	return &CombinedVerdict{
		AIScore:    round2(scoreSum / float64(n)),
		IsAI:       aiVotes > n/2,
		Confidence: round2(confSum / float64(n)),
		Provider:   "combined",
		Consensus:  fmt.Sprintf("%d/%d APIs détectent de l'IA", aiVotes, n),
		Sources:    sources,
	}
}

// demo produces the placeholder verdict used when no provider is available.
// The score is uniform over [0,100) and flagged so callers can tell it apart
// from a real verdict.
func (a *Aggregator) demo(tag string) *CombinedVerdict {
	score := round2(a.randScore())
	return &CombinedVerdict{
		AIScore:    score,
		IsAI:       score >= 50,
		Confidence: demoConfidence,
		Provider:   tag,
		Demo:       true,
	}
}

// round2 rounds to 2 decimal places, applied after any averaging step.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
