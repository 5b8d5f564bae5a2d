package detect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faketect/faketect/internal/domain"
)

// stub providers local to the package so tests can exercise the unexported
// combine path without importing the mock package (which imports detect).

type stubImage struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubImage) Name() string { return s.name }

func (s *stubImage) DetectImage(ctx context.Context, in Input) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Provider = s.name
	return &r, nil
}

type stubVideo struct {
	name   string
	result *Result
	err    error
}

func (s *stubVideo) Name() string { return s.name }

func (s *stubVideo) DetectVideo(ctx context.Context, in Input) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Provider = s.name
	return &r, nil
}

type stubText struct {
	name   string
	result *Result
	err    error
}

func (s *stubText) Name() string { return s.name }

func (s *stubText) DetectText(ctx context.Context, text string) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Provider = s.name
	return &r, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func imageInput() Input {
	return Input{Content: []byte{0xFF, 0xD8}, MimeType: "image/jpeg", Filename: "photo.jpg"}
}

func scored(score float64) *Result {
	return &Result{AIScore: score, IsAI: score >= 50, Confidence: score}
}

func TestAnalyzeImage_TwoProviders(t *testing.T) {
	p1 := &stubImage{name: "sightengine", result: scored(80)}
	p2 := &stubImage{name: "illuminarty", result: scored(60)}
	a := NewAggregator([]ImageProvider{p1, p2}, nil, nil, testLogger())

	v := a.Analyze(context.Background(), imageInput())

	require.NotNil(t, v)
	assert.Equal(t, 70.0, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, 70.0, v.Confidence)
	assert.Equal(t, "combined", v.Provider)
	assert.Equal(t, "2/2 APIs détectent de l'IA", v.Consensus)
	assert.False(t, v.Demo)
	assert.Equal(t, domain.VerdictLikelyAI, v.Verdict.Key)
	assert.Len(t, v.Sources, 2)
	assert.Equal(t, 1, p1.calls)
	assert.Equal(t, 1, p2.calls)
}

func TestAnalyzeImage_TieScoresFifty(t *testing.T) {
	// Mean score lands on 50 but only one of two providers votes AI:
	// the majority vote is strict, so the combined verdict is not AI even
	// though a single provider at 50 would be.
	p1 := &stubImage{name: "sightengine", result: scored(51)}
	p2 := &stubImage{name: "illuminarty", result: scored(49)}
	a := NewAggregator([]ImageProvider{p1, p2}, nil, nil, testLogger())

	v := a.Analyze(context.Background(), imageInput())

	assert.Equal(t, 50.0, v.AIScore)
	assert.False(t, v.IsAI)
	assert.Equal(t, "1/2 APIs détectent de l'IA", v.Consensus)
	assert.Equal(t, domain.VerdictPossiblyAI, v.Verdict.Key)
}

func TestAnalyzeImage_OneProviderFails(t *testing.T) {
	p1 := &stubImage{name: "sightengine", result: scored(92.5)}
	p2 := &stubImage{name: "illuminarty", err: ErrUnavailable}
	a := NewAggregator([]ImageProvider{p1, p2}, nil, nil, testLogger())

	v := a.Analyze(context.Background(), imageInput())

	// Degrades to single-provider semantics.
	assert.Equal(t, 92.5, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, "sightengine", v.Provider)
	assert.Empty(t, v.Consensus)
	assert.False(t, v.Demo)
	assert.Len(t, v.Sources, 1)
	assert.Equal(t, domain.VerdictAIGenerated, v.Verdict.Key)
}

func TestAnalyzeImage_SingleProviderScoreAtFifty(t *testing.T) {
	p1 := &stubImage{name: "sightengine", result: scored(50)}
	a := NewAggregator([]ImageProvider{p1}, nil, nil, testLogger())

	v := a.Analyze(context.Background(), imageInput())

	assert.Equal(t, 50.0, v.AIScore)
	assert.True(t, v.IsAI)
}

func TestAnalyzeImage_AllProvidersFail(t *testing.T) {
	p1 := &stubImage{name: "sightengine", err: ErrRateLimited}
	p2 := &stubImage{name: "illuminarty", err: errors.New("boom")}
	a := NewAggregator([]ImageProvider{p1, p2}, nil, nil, testLogger())
	a.randScore = func() float64 { return 33.337 }

	v := a.Analyze(context.Background(), imageInput())

	assert.True(t, v.Demo)
	assert.Equal(t, "demo-image", v.Provider)
	assert.Equal(t, 33.34, v.AIScore)
	assert.False(t, v.IsAI)
	assert.Equal(t, 70.0, v.Confidence)
	assert.Equal(t, domain.VerdictPossiblyReal, v.Verdict.Key)
}

func TestAnalyzeImage_NoProvidersConfigured(t *testing.T) {
	a := NewAggregator(nil, nil, nil, testLogger())
	a.randScore = func() float64 { return 88 }

	v := a.Analyze(context.Background(), imageInput())

	assert.True(t, v.Demo)
	assert.Equal(t, "demo-image", v.Provider)
	assert.Equal(t, 88.0, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, domain.VerdictLikelyAI, v.Verdict.Key)
}

func TestAnalyzeImage_MoreThanTwoProvidersOnlyTwoDispatched(t *testing.T) {
	p1 := &stubImage{name: "a", result: scored(90)}
	p2 := &stubImage{name: "b", result: scored(70)}
	p3 := &stubImage{name: "c", result: scored(10)}
	a := NewAggregator([]ImageProvider{p1, p2, p3}, nil, nil, testLogger())

	v := a.Analyze(context.Background(), imageInput())

	assert.Equal(t, 80.0, v.AIScore)
	assert.Equal(t, 0, p3.calls)
}

func TestAnalyzeVideo_Success(t *testing.T) {
	vp := &stubVideo{name: "sightengine", result: &Result{AIScore: 61.237, IsAI: true, FramesAnalyzed: 12}}
	a := NewAggregator(nil, vp, nil, testLogger())

	v := a.Analyze(context.Background(), Input{Content: []byte{1}, MimeType: "video/mp4", Filename: "clip.mp4"})

	assert.Equal(t, 61.24, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, 80.0, v.Confidence)
	assert.Equal(t, "sightengine", v.Provider)
	assert.Equal(t, 12, v.FramesAnalyzed)
	assert.False(t, v.Demo)
}

func TestAnalyzeVideo_ZeroFramesFallsBack(t *testing.T) {
	vp := &stubVideo{name: "sightengine", result: &Result{AIScore: 0, FramesAnalyzed: 0}}
	a := NewAggregator(nil, vp, nil, testLogger())
	a.randScore = func() float64 { return 55.5 }

	v := a.Analyze(context.Background(), Input{Content: []byte{1}, MimeType: "video/mp4"})

	assert.True(t, v.Demo)
	assert.Equal(t, "demo-video", v.Provider)
	assert.Equal(t, 55.5, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, 70.0, v.Confidence)
}

func TestAnalyzeVideo_ProviderErrorFallsBack(t *testing.T) {
	vp := &stubVideo{name: "sightengine", err: ErrNoFrames}
	a := NewAggregator(nil, vp, nil, testLogger())
	a.randScore = func() float64 { return 10 }

	v := a.Analyze(context.Background(), Input{Content: []byte{1}, MimeType: "video/quicktime"})

	assert.True(t, v.Demo)
	assert.Equal(t, "demo-video", v.Provider)
}

func TestAnalyzeText_Success(t *testing.T) {
	tp := &stubText{name: "openai-text", result: &Result{AIScore: 95, IsAI: true, Confidence: 95}}
	a := NewAggregator(nil, nil, tp, testLogger())

	v := a.Analyze(context.Background(), Input{Content: []byte("lorem ipsum"), MimeType: "text/plain"})

	assert.Equal(t, 95.0, v.AIScore)
	assert.True(t, v.IsAI)
	assert.Equal(t, "openai-text", v.Provider)
	assert.Equal(t, domain.VerdictAIGenerated, v.Verdict.Key)
	assert.False(t, v.Demo)
}

func TestAnalyzeText_NoProviderFallsBack(t *testing.T) {
	a := NewAggregator(nil, nil, nil, testLogger())
	a.randScore = func() float64 { return 5 }

	v := a.Analyze(context.Background(), Input{Content: []byte("hello"), MimeType: "text/plain"})

	assert.True(t, v.Demo)
	assert.Equal(t, "demo-text", v.Provider)
	assert.Equal(t, domain.VerdictLikelyReal, v.Verdict.Key)
}

func TestCombine_RoundsAfterAveraging(t *testing.T) {
	results := []*Result{
		{Provider: "a", AIScore: 33.335, IsAI: false, Confidence: 33.335},
		{Provider: "b", AIScore: 33.336, IsAI: false, Confidence: 33.336},
	}

	v := combine(results)

	// The mean (33.3355) is rounded once, not the inputs.
	assert.Equal(t, 33.34, v.AIScore)
	assert.Equal(t, "0/2 APIs détectent de l'IA", v.Consensus)
}
