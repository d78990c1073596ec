package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
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
	"github.com/credlens/credcheck/internal/pipeline"
	"github.com/credlens/credcheck/internal/store"
	"github.com/credlens/credcheck/internal/triage"
	"github.com/credlens/credcheck/internal/validate"
	"github.com/credlens/credcheck/internal/verify"
	"github.com/credlens/credcheck/pkg/anthropic"
)

const testArticle = "Breaking: the council approved the budget today. Some residents say shadowy elites control the council. The mayor was elected in 2019."

const testModelOutput = `{
	"trust_score": 65,
	"bias": "Center",
	"summary": "Mostly factual reporting with one conspiratorial aside.",
	"flagged_snippets": [
		{"text": "shadowy elites control the council", "type": "Propaganda", "reason": "conspiratorial framing", "confidence": 0.8}
	],
	"verifiable_claims": ["The council approved the budget today."]
}`

type fakeAI struct{ response string }

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
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
	}, nil
}

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

// newTestServer wires a full pipeline behind the router. runs may be nil.
func newTestServer(t *testing.T, runs store.Store) *httptest.Server {
	t.Helper()
	responseCache := cache.New(time.Minute, time.Minute)
	p := pipeline.New(
		analyzer.New(&fakeAI{response: testModelOutput}, "model-x", 4096),
		testClassifier(t),
		verify.NewVerifier(triage.NewHeuristic(30), okChecker{}, okChecker{}, time.Second),
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
		responseCache,
		runs,
	)

	srv := httptest.NewServer(New(p, runs, responseCache, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestPredict_Validation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"text": `, "invalid request body"},
		{"missing text", `{}`, "text is required"},
		{"blank text", `{"text": "   "}`, "text is required"},
		{"too short", `{"text": "too short to score"}`, "text must be at least 50 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.wantErr, out["error"])
		})
	}
}

func TestPredict_CacheHeader(t *testing.T) {
	srv := newTestServer(t, nil)
	req := model.AnalysisRequest{Text: testArticle}

	resp1 := postJSON(t, srv.URL+"/predict", req)
	defer resp1.Body.Close()
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	assert.Equal(t, "MISS", resp1.Header.Get("X-Cache"))
	body1, err := io.ReadAll(resp1.Body)
	require.NoError(t, err)

	var result model.AnalysisResult
	require.NoError(t, json.Unmarshal(body1, &result))
	assert.Equal(t, model.LabelLikelyTrue, result.Label)
	require.Len(t, result.FlaggedSnippets, 1)

	resp2 := postJSON(t, srv.URL+"/predict", req)
	defer resp2.Body.Close()
	assert.Equal(t, "HIT", resp2.Header.Get("X-Cache"))
	body2, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Equal(t, body1, body2)
}

func TestPredictStream_EventFrames(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/predict/stream", model.AnalysisRequest{Text: testArticle})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var events []pipeline.Event
	for _, frame := range strings.Split(string(body), "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		payload, found := strings.CutPrefix(frame, "data: ")
		require.True(t, found, "frame %q missing data prefix", frame)
		var ev pipeline.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, pipeline.EventStatus, events[0].Type)

	last := -1
	for _, ev := range events {
		require.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	}

	final := events[len(events)-1]
	require.Equal(t, pipeline.EventComplete, final.Type)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)
	assert.Equal(t, model.LabelLikelyTrue, final.Result.Label)
}

func TestPredictStream_RejectsShortText(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/predict/stream", model.AnalysisRequest{Text: "short"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}

func TestRuns_DisabledWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/runs", "/runs/abc", "/stats"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestRuns_ListAndGet(t *testing.T) {
	srv := newTestServer(t, newTestStore(t))

	resp := postJSON(t, srv.URL+"/predict", model.AnalysisRequest{Text: testArticle})
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "ai", list.Runs[0].GeneratedBy)

	getResp, err := http.Get(fmt.Sprintf("%s/runs/%s", srv.URL, list.Runs[0].ID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var run model.Run
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&run))
	assert.Equal(t, list.Runs[0].ID, run.ID)

	missing, err := http.Get(srv.URL + "/runs/no-such-id")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestStats_Snapshot(t *testing.T) {
	srv := newTestServer(t, newTestStore(t))

	resp := postJSON(t, srv.URL+"/predict", model.AnalysisRequest{Text: testArticle})
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	statsResp, err := http.Get(srv.URL + "/stats?hours=1")
	require.NoError(t, err)
	defer statsResp.Body.Close()
	require.Equal(t, http.StatusOK, statsResp.StatusCode)

	var snap struct {
		RunsTotal     int            `json:"runs_total"`
		AvgTrustScore float64        `json:"avg_trust_score"`
		LabelCounts   map[string]int `json:"label_counts"`
		LookbackHours int            `json:"lookback_hours"`
	}
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&snap))
	assert.Equal(t, 1, snap.RunsTotal)
	assert.Equal(t, 1, snap.LookbackHours)
	assert.Greater(t, snap.AvgTrustScore, 0.0)
}
