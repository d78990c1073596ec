// Package stats aggregates run history into service-level metrics.
package stats

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/store"
)

// Snapshot holds a point-in-time view of analysis activity.
type Snapshot struct {
	// Run metrics within the lookback window.
	RunsTotal     int            `json:"runs_total"`
	AvgTrustScore float64        `json:"avg_trust_score"`
	LabelCounts   map[string]int `json:"label_counts"`
	BiasCounts    map[string]int `json:"bias_counts"`

	// FallbackRate is the share of runs served by the local classifier
	// instead of the AI analyzer.
	FallbackRate float64 `json:"fallback_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a Collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// WithNow fixes the clock for testing.
func (c *Collector) WithNow(fn func() time.Time) *Collector {
	c.now = fn
	return c
}

// Collect aggregates runs recorded within the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := c.now().UTC()

	snap := &Snapshot{
		LabelCounts:   map[string]int{},
		BiasCounts:    map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "stats: list runs")
	}

	snap.RunsTotal = len(runs)
	if len(runs) == 0 {
		return snap, nil
	}

	var scoreSum int
	var fallbackCount int
	for _, r := range runs {
		scoreSum += r.TrustScore
		snap.LabelCounts[string(r.Label)]++
		if r.Bias != model.BiasUnknown && r.Bias != "" {
			snap.BiasCounts[string(r.Bias)]++
		}
		if r.GeneratedBy == "fallback" {
			fallbackCount++
		}
	}

	snap.AvgTrustScore = float64(scoreSum) / float64(len(runs))
	snap.FallbackRate = float64(fallbackCount) / float64(len(runs))

	return snap, nil
}
