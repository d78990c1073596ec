// Package cache is the fingerprint-keyed response cache. It combines a
// TTL-bound store with single-flight execution: concurrent requests that
// share a fingerprint attach to one in-flight computation instead of
// duplicating expensive model and search calls.
package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/credlens/credcheck/internal/model"
)

// ResponseCache caches marshaled AnalysisResults by fingerprint.
type ResponseCache struct {
	store  *gocache.Cache
	flight singleflight.Group
	ttl    time.Duration
}

// New creates a ResponseCache with the given entry TTL and janitor interval.
func New(ttl, cleanupInterval time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &ResponseCache{
		store: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// GetOrCompute returns the cached result for fingerprint, or runs compute
// exactly once per fingerprint across concurrent callers and caches its
// result. forceRefresh bypasses the read path but still single-flights the
// recompute and writes a fresh entry. compute runs on a detached context:
// one caller disconnecting must not cancel a computation other callers are
// attached to; lifecycle shutdown flows through parent.
//
// The cached bytes are the response: callers serving HTTP can write them
// verbatim, which is what makes cached responses byte-identical.
func (c *ResponseCache) GetOrCompute(ctx context.Context, fingerprint string, forceRefresh bool, compute func(ctx context.Context) (*model.AnalysisResult, error)) (*model.AnalysisResult, []byte, error) {
	if !forceRefresh {
		if result, raw, ok := c.get(fingerprint); ok {
			return result, raw, nil
		}
	}

	type payload struct {
		result *model.AnalysisResult
		raw    []byte
	}

	v, err, shared := c.flight.Do(fingerprint, func() (any, error) {
		result, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			// Partial results are never cached.
			return nil, err
		}

		raw, err := json.Marshal(result)
		if err != nil {
			return nil, eris.Wrap(err, "cache: marshal result")
		}
		c.store.Set(fingerprint, raw, c.ttl)
		return payload{result: result, raw: raw}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if shared {
		zap.L().Debug("request attached to in-flight computation",
			zap.String("fingerprint", fingerprint),
		)
	}

	p := v.(payload)
	return p.result, p.raw, nil
}

// Get returns the cached result for fingerprint if present and fresh.
func (c *ResponseCache) Get(fingerprint string) (*model.AnalysisResult, bool) {
	result, _, ok := c.get(fingerprint)
	return result, ok
}

func (c *ResponseCache) get(fingerprint string) (*model.AnalysisResult, []byte, bool) {
	v, ok := c.store.Get(fingerprint)
	if !ok {
		return nil, nil, false
	}

	raw, ok := v.([]byte)
	if !ok {
		// Shouldn't happen; treat as a miss and recompute.
		c.store.Delete(fingerprint)
		return nil, nil, false
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// Corrupt entry: a miss, never an error.
		zap.L().Warn("evicting corrupt cache entry",
			zap.String("fingerprint", fingerprint),
			zap.Error(err),
		)
		c.store.Delete(fingerprint)
		return nil, nil, false
	}

	return &result, raw, true
}

// ItemCount reports the number of live entries, for the health endpoint.
func (c *ResponseCache) ItemCount() int {
	return c.store.ItemCount()
}
