// Package analyzer turns article text into a raw credibility assessment
// using a generative model with web-search grounding. Its output is
// untrusted until the verification pipeline has gated it.
package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/resilience"
	"github.com/credlens/credcheck/pkg/anthropic"
)

// ErrUnavailable reports that the AI provider cannot serve requests (auth,
// quota, or network failure). Callers route the whole request to the
// offline fallback classifier when they see it.
var ErrUnavailable = errors.New("analyzer: ai provider unavailable")

// RawAnalysis is the model's assessment before verification. TrustScore is
// an estimate: the aggregator owns the final score.
type RawAnalysis struct {
	TrustScore int
	Bias       model.Bias
	Summary    string
	Snippets   []model.FlaggedSnippet
	Claims     []string
}

// Analyzer calls the generative model and parses its output.
type Analyzer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	searchMax int64
	now       func() time.Time
}

// New creates an Analyzer.
func New(client anthropic.Client, modelID string, maxTokens int64) *Analyzer {
	return &Analyzer{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		searchMax: 5,
		now:       time.Now,
	}
}

// WithNow fixes the clock for testing.
func (a *Analyzer) WithNow(fn func() time.Time) *Analyzer {
	a.now = fn
	return a
}

// Analyze submits the normalized article to the model and parses the
// structured result. Snippet indexes are resolved against text; snippets
// whose text cannot be located are dropped. Malformed model output is
// recovered best-effort and never surfaces as an error; provider
// unavailability surfaces as ErrUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, text, title string) (*RawAnalysis, error) {
	req := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserMessage(text, title, a.now())},
		},
		WebSearch: &anthropic.WebSearchTool{MaxUses: a.searchMax},
	}

	resp, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, req)
	})
	if err != nil {
		if resilience.IsUnavailable(err) {
			return nil, eris.Wrap(ErrUnavailable, err.Error())
		}
		return nil, eris.Wrap(err, "analyzer: create message")
	}

	resp.Usage.LogUsage(a.model, "analyze")

	raw, parseErr := parseResponse(resp.Text())
	if parseErr != nil {
		// Malformed output is recovered, not surfaced: the neutral result
		// keeps the pipeline alive and the aggregator treats it as an
		// uninformative signal.
		zap.L().Warn("analyzer: unparseable model output, using neutral result",
			zap.Error(parseErr),
		)
		return &RawAnalysis{TrustScore: 50, Bias: model.BiasUnknown, Summary: "AI analysis could not be parsed."}, nil
	}

	raw.Snippets = resolveIndexes(raw.Snippets, text)
	return raw, nil
}

// resolveIndexes locates each snippet's text within the normalized article
// and records its [start, end) character span. Exact match is tried first,
// then case-insensitive. Snippets that cannot be located are dropped: the
// extension contract requires every returned snippet to be highlightable.
func resolveIndexes(snippets []model.FlaggedSnippet, text string) []model.FlaggedSnippet {
	out := snippets[:0]
	for _, s := range snippets {
		if s.Text == "" {
			continue
		}
		start := strings.Index(text, s.Text)
		if start < 0 {
			start = foldIndex(text, s.Text)
		}
		if start < 0 {
			zap.L().Debug("analyzer: dropping snippet not present in text",
				zap.String("snippet", s.Text),
			)
			continue
		}
		s.Index = [2]int{start, start + len(s.Text)}
		out = append(out, s)
	}
	return out
}

// foldIndex finds sub in text under case folding, returning a byte offset
// that is always valid in text itself. Searching a lowered copy instead
// would return offsets that drift once a rune's case pair changes byte
// length (İ lowers from two bytes to one). Only equal-byte-length spans
// are matched, so a returned span is exactly len(sub) bytes of text that
// fold-equals sub.
func foldIndex(text, sub string) int {
	if sub == "" || len(sub) > len(text) {
		return -1
	}
	for i := range text {
		if i+len(sub) > len(text) {
			break
		}
		if strings.EqualFold(text[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
