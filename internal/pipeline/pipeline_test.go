package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlens/credcheck/internal/aggregate"
	"github.com/credlens/credcheck/internal/analyzer"
	"github.com/credlens/credcheck/internal/cache"
	"github.com/credlens/credcheck/internal/config"
	"github.com/credlens/credcheck/internal/fallback"
	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/store"
	"github.com/credlens/credcheck/internal/triage"
	"github.com/credlens/credcheck/internal/validate"
	"github.com/credlens/credcheck/internal/verify"
	"github.com/credlens/credcheck/pkg/anthropic"
)

const articleText = "Breaking: the council approved the budget today. Some residents say shadowy elites control the council. The mayor was elected in 2019."

const modelOutput = `{
	"trust_score": 65,
	"bias": "Center",
	"summary": "Mostly factual reporting with one conspiratorial aside.",
	"flagged_snippets": [
		{"text": "shadowy elites control the council", "type": "Propaganda", "reason": "conspiratorial framing", "confidence": 0.8}
	],
	"verifiable_claims": ["The council approved the budget today.", "The mayor was elected in 2019."]
}`

type fakeAI struct {
	response string
	err      error
}

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
	}, nil
}

type okChecker struct{}

func (okChecker) Check(ctx context.Context, claim string) (model.Claim, error) {
	return model.Claim{
		Verdict:     model.VerdictVerified,
		Confidence:  0.9,
		Explanation: "corroborated",
		Sources:     []model.Source{{Title: "src", URL: "https://reuters.com/a", IsCredible: true}},
	}, nil
}

type recordingStore struct {
	mu   sync.Mutex
	runs []model.Run
}

func (r *recordingStore) RecordRun(ctx context.Context, run *model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return nil
}
func (r *recordingStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return nil, store.ErrNotFound
}
func (r *recordingStore) ListRuns(ctx context.Context, f store.RunFilter) ([]model.Run, error) {
	return nil, nil
}
func (r *recordingStore) Migrate(ctx context.Context) error { return nil }
func (r *recordingStore) Close() error                      { return nil }

func testClassifier(t *testing.T) *fallback.Classifier {
	t.Helper()
	art := fallback.Artifact{
		Vocabulary: map[string]int{"confirmed": 0, "hoax": 1},
		IDF:        []float64{1, 1},
		Coef:       []float64{3.0, -3.0},
		NGramMax:   1,
	}
	data, err := json.Marshal(art)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := fallback.Load(path)
	require.NoError(t, err)
	return c
}

func buildPipeline(t *testing.T, ai anthropic.Client, runs store.Store) *Pipeline {
	t.Helper()
	verifier := verify.NewVerifier(
		triage.NewHeuristic(30),
		okChecker{},
		okChecker{},
		time.Second,
	)
	return New(
		analyzer.New(ai, "model-x", 4096),
		testClassifier(t),
		verifier,
		verify.DefaultAllowlist(),
		validate.New(true),
		aggregate.New(config.VerifyConfig{
			FalseScoreCap:          25,
			MisleadingPenalty:      15,
			MisleadingFloor:        15,
			UnsubstantiatedPenalty: 8,
			UnsubstantiatedFloor:   30,
			VerifiedBoostTarget:    80,
		}),
		cache.New(time.Minute, time.Minute),
		runs,
	)
}

func TestAnalyze_AIPath(t *testing.T) {
	runs := &recordingStore{}
	p := buildPipeline(t, &fakeAI{response: modelOutput}, runs)

	req := model.AnalysisRequest{
		Text:  articleText,
		Title: "Council budget",
		URL:   "https://www.reuters.com/local/budget",
	}

	result, raw, cacheHit, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, cacheHit)

	// Both claims verified, so the estimate is boosted toward the target.
	assert.Equal(t, 73, result.TrustScore)
	assert.Equal(t, model.LabelLikelyTrue, result.Label)
	assert.Equal(t, model.BiasCenter, result.Bias)
	assert.Equal(t, "ai", result.Explanation.GeneratedBy)
	assert.Contains(t, result.Explanation.Summary, "2 verified claims")

	require.Len(t, result.FactCheckedClaims, 2)
	assert.Equal(t, model.ClaimBreakingNews, result.FactCheckedClaims[0].Classification)
	assert.Equal(t, model.ClaimHistoricalFact, result.FactCheckedClaims[1].Classification)

	require.Len(t, result.FlaggedSnippets, 1)
	s := result.FlaggedSnippets[0]
	assert.Equal(t, articleText[s.Index[0]:s.Index[1]], s.Text)

	assert.Equal(t, 1, result.Metadata.SnippetsValidated)
	assert.Equal(t, 1, result.Metadata.FactChecksPerformed)
	assert.Equal(t, model.BiasCenter, result.Metadata.SourceDomainBias)
	assert.NotEmpty(t, result.Metadata.Fingerprint)

	var roundTrip model.AnalysisResult
	require.NoError(t, json.Unmarshal(raw, &roundTrip))
	assert.Equal(t, result.TrustScore, roundTrip.TrustScore)

	// The run was recorded.
	require.Len(t, runs.runs, 1)
	assert.Equal(t, "ai", runs.runs[0].GeneratedBy)
	assert.Equal(t, result.Metadata.Fingerprint, runs.runs[0].Fingerprint)
}

func TestAnalyze_SnippetSourceCredibility(t *testing.T) {
	// Sources the model cites carry no domain or credibility of their
	// own; both are derived from the trusted-domain allowlist.
	output := `{
		"trust_score": 65,
		"bias": "Center",
		"summary": "One conspiratorial aside, fact-checked by the model.",
		"flagged_snippets": [
			{
				"text": "shadowy elites control the council",
				"type": "Propaganda",
				"reason": "conspiratorial framing",
				"confidence": 0.8,
				"sources": [
					{"title": "Fact check: council claims", "url": "https://www.reuters.com/fact-check/council", "snippet": "No evidence supports this."},
					{"title": "A personal blog", "url": "https://someblog.example/post/12", "snippet": "It is all true!"}
				]
			}
		],
		"verifiable_claims": []
	}`
	p := buildPipeline(t, &fakeAI{response: output}, nil)

	result, _, _, err := p.Analyze(context.Background(), model.AnalysisRequest{Text: articleText})
	require.NoError(t, err)

	require.Len(t, result.FlaggedSnippets, 1)
	srcs := result.FlaggedSnippets[0].Sources
	require.Len(t, srcs, 2)

	assert.Equal(t, "reuters.com", srcs[0].Domain)
	assert.True(t, srcs[0].IsCredible)

	assert.Equal(t, "someblog.example", srcs[1].Domain)
	assert.False(t, srcs[1].IsCredible)
}

func TestAnalyze_CacheHitIsByteIdentical(t *testing.T) {
	p := buildPipeline(t, &fakeAI{response: modelOutput}, nil)
	req := model.AnalysisRequest{Text: articleText}

	_, raw1, hit1, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit1)

	_, raw2, hit2, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit2)
	assert.Equal(t, raw1, raw2)
}

func TestAnalyze_ForceRefreshRecomputes(t *testing.T) {
	p := buildPipeline(t, &fakeAI{response: modelOutput}, nil)

	_, _, _, err := p.Analyze(context.Background(), model.AnalysisRequest{Text: articleText})
	require.NoError(t, err)

	_, _, hit, err := p.Analyze(context.Background(), model.AnalysisRequest{Text: articleText, ForceRefresh: true})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestAnalyze_FallbackOnAIUnavailable(t *testing.T) {
	runs := &recordingStore{}
	p := buildPipeline(t, &fakeAI{err: errors.New("invalid api key")}, runs)

	result, _, _, err := p.Analyze(context.Background(), model.AnalysisRequest{
		Text: "Officials confirmed the figures in the annual report.",
	})
	require.NoError(t, err)

	assert.Equal(t, "fallback", result.Explanation.GeneratedBy)
	assert.Empty(t, result.FactCheckedClaims)
	assert.Empty(t, result.FlaggedSnippets)
	// "confirmed" carries a strong positive weight in the test model.
	assert.Greater(t, result.TrustScore, 70)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, "fallback", runs.runs[0].GeneratedBy)
}

func TestAnalyzeStream_EventSequence(t *testing.T) {
	p := buildPipeline(t, &fakeAI{response: modelOutput}, nil)
	req := model.AnalysisRequest{Text: articleText}

	emit := NewEmitter()
	go p.AnalyzeStream(context.Background(), req, emit)

	var events []Event
	for ev := range emit.Events() {
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, EventStatus, events[0].Type)

	var sawPartial, sawSnippet bool
	last := -1
	for _, ev := range events {
		require.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
		switch ev.Type {
		case EventPartial:
			sawPartial = true
		case EventSnippet:
			sawSnippet = true
		}
	}
	assert.True(t, sawPartial)
	assert.True(t, sawSnippet)

	final := events[len(events)-1]
	require.Equal(t, EventComplete, final.Type)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)

	// The streamed complete payload matches the non-streaming response.
	result, _, hit, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, result.TrustScore, final.Result.TrustScore)
	assert.Equal(t, result.FlaggedSnippets, final.Result.FlaggedSnippets)
}

func TestAnalyzeStream_CachedReplay(t *testing.T) {
	p := buildPipeline(t, &fakeAI{response: modelOutput}, nil)
	req := model.AnalysisRequest{Text: articleText}

	_, _, _, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)

	emit := NewEmitter()
	go p.AnalyzeStream(context.Background(), req, emit)

	var events []Event
	for ev := range emit.Events() {
		events = append(events, ev)
	}

	// Replay still produces partial, snippet, and complete events.
	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventPartial)
	assert.Contains(t, types, EventSnippet)
	require.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestAnalyzeStream_DetachedConsumer(t *testing.T) {
	// A consumer that walks away before the run finishes must not block it.
	p := buildPipeline(t, &fakeAI{response: modelOutput}, nil)

	emit := NewEmitter()
	emit.Stop()
	done := make(chan struct{})
	go func() {
		p.AnalyzeStream(context.Background(), model.AnalysisRequest{Text: articleText}, emit)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream run blocked on a detached consumer")
	}
}
