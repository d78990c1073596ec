// Package pipeline orchestrates one analysis end to end: normalize the
// text, analyze it, verify the extracted claims, validate flagged
// snippets against their evidence, and aggregate a final score. Results
// are cached by fingerprint and recorded to the run store.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/aggregate"
	"github.com/credlens/credcheck/internal/analyzer"
	"github.com/credlens/credcheck/internal/biasdata"
	"github.com/credlens/credcheck/internal/cache"
	"github.com/credlens/credcheck/internal/fallback"
	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/normalize"
	"github.com/credlens/credcheck/internal/store"
	"github.com/credlens/credcheck/internal/validate"
	"github.com/credlens/credcheck/internal/verify"
)

// Pipeline wires the analysis stages together. All dependencies are
// constructed once at startup and shared across requests; the pipeline
// itself holds no per-request state.
type Pipeline struct {
	analyzer   *analyzer.Analyzer
	classifier *fallback.Classifier
	verifier   *verify.Verifier
	allowlist  *verify.Allowlist
	validator  *validate.Validator
	aggregator *aggregate.Aggregator
	cache      *cache.ResponseCache
	runs       store.Store
}

// New creates a Pipeline. runs may be nil to disable history.
func New(
	a *analyzer.Analyzer,
	classifier *fallback.Classifier,
	verifier *verify.Verifier,
	allowlist *verify.Allowlist,
	validator *validate.Validator,
	aggregator *aggregate.Aggregator,
	responseCache *cache.ResponseCache,
	runs store.Store,
) *Pipeline {
	return &Pipeline{
		analyzer:   a,
		classifier: classifier,
		verifier:   verifier,
		allowlist:  allowlist,
		validator:  validator,
		aggregator: aggregator,
		cache:      responseCache,
		runs:       runs,
	}
}

// Analyze runs the full pipeline for one request, serving from cache when
// possible. The returned bytes are the canonical marshaled result; cached
// responses are byte-identical to the first computation. cacheHit reports
// whether this caller reused a stored result rather than computing one.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest) (result *model.AnalysisResult, raw []byte, cacheHit bool, err error) {
	norm := normalize.Normalize(req.Text, req.Title)

	computed := false
	result, raw, err = p.cache.GetOrCompute(ctx, norm.Fingerprint, req.ForceRefresh, func(ctx context.Context) (*model.AnalysisResult, error) {
		computed = true
		return p.run(ctx, norm, req, nil)
	})
	if err != nil {
		return nil, nil, false, err
	}
	return result, raw, !computed, nil
}

// AnalyzeStream runs the pipeline and pushes progress events to emit.
// When the result comes from cache, or from a computation another request
// already started, the stored result is replayed as the event sequence a
// fresh run would have produced.
func (p *Pipeline) AnalyzeStream(ctx context.Context, req model.AnalysisRequest, emit *Emitter) {
	emit.Status("Preparing article text", 5)
	norm := normalize.Normalize(req.Text, req.Title)

	computed := false
	result, _, err := p.cache.GetOrCompute(ctx, norm.Fingerprint, req.ForceRefresh, func(ctx context.Context) (*model.AnalysisResult, error) {
		computed = true
		return p.run(ctx, norm, req, emit)
	})
	if err != nil {
		emit.Error("internal_error", "analysis failed")
		return
	}

	if !computed {
		emit.Partial(result.TrustScore, result.Label, result.Bias, 80)
		for _, s := range result.FlaggedSnippets {
			emit.Snippet(s, 90)
		}
	}
	emit.Complete(result)
}

// run executes the stages for one uncached request. It is called inside
// the cache's single-flight group on a detached context; emit is nil for
// non-streaming callers and for callers attached to someone else's
// computation.
func (p *Pipeline) run(ctx context.Context, norm normalize.Normalized, req model.AnalysisRequest, emit *Emitter) (*model.AnalysisResult, error) {
	emit.Status("Analyzing content", 20)

	raw, err := p.analyzer.Analyze(ctx, norm.Text, norm.Title)
	if err != nil {
		// Provider unavailability never fails a request: the trained
		// classifier carries it instead.
		zap.L().Warn("ai analysis unavailable, using fallback classifier", zap.Error(err))
		result := p.runFallback(norm, req, emit)
		p.record(result, norm, req)
		return result, nil
	}

	p.annotateSources(raw.Snippets)

	emit.Partial(raw.TrustScore, model.LabelForScore(raw.TrustScore), raw.Bias, 40)
	emit.Status("Verifying claims", 55)

	claims := p.verifier.VerifyAll(ctx, raw.Claims)

	emit.Status("Validating evidence", 65)
	snippets, outcome := p.validator.Apply(raw.Snippets, claims)
	snippets = aggregate.FinalizeSnippets(snippets)

	score, label := p.aggregator.Score(raw.TrustScore, claims)

	for i, s := range snippets {
		emit.Snippet(s, 70+(i+1)*25/len(snippets))
	}

	result := &model.AnalysisResult{
		TrustScore: score,
		Label:      label,
		Bias:       raw.Bias,
		Explanation: model.Explanation{
			Summary:     aggregate.ExtendSummary(raw.Summary, claims),
			GeneratedBy: "ai",
		},
		FlaggedSnippets:   snippets,
		FactCheckedClaims: claims,
		Metadata: model.Metadata{
			SnippetsValidated:   outcome.Validated,
			SnippetsFiltered:    outcome.Filtered,
			FactChecksPerformed: countHistorical(claims),
			SourceDomainBias:    sourceBias(req.URL),
			Fingerprint:         norm.Fingerprint,
		},
	}

	p.record(result, norm, req)
	return result, nil
}

// runFallback builds a result from the trained classifier alone. No
// claims are extracted on this path, so verification and validation are
// skipped entirely.
func (p *Pipeline) runFallback(norm normalize.Normalized, req model.AnalysisRequest, emit *Emitter) *model.AnalysisResult {
	fb := p.classifier.Classify(norm.Text, norm.Title)

	emit.Partial(fb.TrustScore, fb.Label, fb.Bias, 60)

	return &model.AnalysisResult{
		TrustScore: fb.TrustScore,
		Label:      fb.Label,
		Bias:       fb.Bias,
		Explanation: model.Explanation{
			Summary:     "Automated assessment by the local classifier; the AI analysis service was unavailable.",
			GeneratedBy: "fallback",
		},
		Metadata: model.Metadata{
			SourceDomainBias: sourceBias(req.URL),
			Fingerprint:      norm.Fingerprint,
		},
	}
}

// record writes run history. Best effort: a storage failure is logged and
// never surfaces to the request.
func (p *Pipeline) record(result *model.AnalysisResult, norm normalize.Normalized, req model.AnalysisRequest) {
	if p.runs == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		zap.L().Warn("marshal run record", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := &model.Run{
		Fingerprint: norm.Fingerprint,
		URL:         req.URL,
		Title:       norm.Title,
		TrustScore:  result.TrustScore,
		Label:       result.Label,
		Bias:        result.Bias,
		GeneratedBy: result.Explanation.GeneratedBy,
		Result:      raw,
	}
	if err := p.runs.RecordRun(ctx, run); err != nil {
		zap.L().Warn("record run", zap.Error(err))
	}
}

// annotateSources stamps allowlist-derived credibility onto sources the
// model cited for its snippets. is_credible means allowlist membership;
// the model gets no say in it.
func (p *Pipeline) annotateSources(snippets []model.FlaggedSnippet) {
	if p.allowlist == nil {
		return
	}
	for i := range snippets {
		for j := range snippets[i].Sources {
			src := &snippets[i].Sources[j]
			src.Domain = verify.ExtractDomain(src.URL)
			src.IsCredible = src.Domain != "" && p.allowlist.Contains(src.Domain)
		}
	}
}

func countHistorical(claims []model.Claim) int {
	n := 0
	for _, c := range claims {
		if c.Classification == model.ClaimHistoricalFact {
			n++
		}
	}
	return n
}

func sourceBias(rawURL string) model.Bias {
	if rawURL == "" {
		return ""
	}
	return biasdata.ForURL(rawURL)
}
