package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/aggregate"
	"github.com/credlens/credcheck/internal/analyzer"
	"github.com/credlens/credcheck/internal/cache"
	"github.com/credlens/credcheck/internal/fallback"
	"github.com/credlens/credcheck/internal/pipeline"
	"github.com/credlens/credcheck/internal/store"
	"github.com/credlens/credcheck/internal/triage"
	"github.com/credlens/credcheck/internal/validate"
	"github.com/credlens/credcheck/internal/verify"
	anthropicpkg "github.com/credlens/credcheck/pkg/anthropic"
	"github.com/credlens/credcheck/pkg/factcheck"
	"github.com/credlens/credcheck/pkg/websearch"
)

// pipelineEnv holds the initialized clients, stores, and pipeline shared
// by the serve and analyze commands.
type pipelineEnv struct {
	Store    store.Store
	Cache    *cache.ResponseCache
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline loads the fallback model, opens the run store, builds all
// API clients, and assembles the Pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	// The classifier artifact is the one hard startup requirement: it is
	// the degradation path when the AI provider is down, so the service
	// must not come up without it.
	classifier, err := fallback.Load(cfg.Fallback.ModelPath)
	if err != nil {
		return nil, eris.Wrap(err, "load fallback model")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create store directory")
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Anthropic.Key == "" {
		zap.L().Warn("CREDCHECK_ANTHROPIC_KEY not set, all requests will use the fallback classifier")
	}
	if cfg.Search.Key == "" || cfg.Search.EngineID == "" {
		zap.L().Warn("search credentials not set, breaking-news claims will resolve as Unsubstantiated")
	}
	if cfg.FactCheck.Key == "" {
		zap.L().Warn("CREDCHECK_FACTCHECK_KEY not set, historical claims will resolve as Unverified")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	searchClient := websearch.NewClient(cfg.Search.Key, cfg.Search.EngineID,
		websearch.WithBaseURL(cfg.Search.BaseURL),
	)
	factcheckClient := factcheck.NewClient(cfg.FactCheck.Key,
		factcheck.WithBaseURL(cfg.FactCheck.BaseURL),
	)

	allowlist := verify.DefaultAllowlist()
	if cfg.Search.AllowlistPath != "" {
		allowlist, err = verify.LoadAllowlist(cfg.Search.AllowlistPath)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load trusted domain allowlist")
		}
	}

	consensus := verify.NewConsensusSearcher(searchClient, allowlist, cfg.Search.RatePerSecond, cfg.Search.MaxResults)
	checker := verify.NewFactChecker(factcheckClient, cfg.FactCheck.MaxResults)
	verifier := verify.NewVerifier(
		triage.NewHeuristic(cfg.Verify.RecencyWindowDays),
		consensus,
		checker,
		time.Duration(cfg.Verify.ClaimTimeoutSecs)*time.Second,
	)

	responseCache := cache.New(
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		time.Duration(cfg.Cache.CleanupMinutes)*time.Minute,
	)

	p := pipeline.New(
		analyzer.New(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
		classifier,
		verifier,
		allowlist,
		validate.New(cfg.Verify.StrictValidation),
		aggregate.New(cfg.Verify),
		responseCache,
		st,
	)

	return &pipelineEnv{
		Store:    st,
		Cache:    responseCache,
		Pipeline: p,
	}, nil
}
