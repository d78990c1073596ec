package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/credlens/credcheck/internal/model"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestClassify_RecentExplicitDate(t *testing.T) {
	h := NewHeuristic(30)

	cases := []string{
		"The minister resigned on March 10, 2026.",
		"The minister resigned on 10 March 2026.",
		"The vote took place on 2026-03-01.",
	}
	for _, claim := range cases {
		assert.Equal(t, model.ClaimBreakingNews, h.Classify(claim, testNow), claim)
	}
}

func TestClassify_OldExplicitDate(t *testing.T) {
	h := NewHeuristic(30)

	cases := []string{
		"The treaty was signed on June 26, 1945.",
		"The law passed on 2019-05-20.",
		"Construction finished in 2003.",
	}
	for _, claim := range cases {
		assert.Equal(t, model.ClaimHistoricalFact, h.Classify(claim, testNow), claim)
	}
}

func TestClassify_RelativePhrases(t *testing.T) {
	h := NewHeuristic(30)

	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("The outage began 3 hours ago.", testNow))
	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("The deal closed 2 weeks ago.", testNow))
	assert.Equal(t, model.ClaimHistoricalFact,
		h.Classify("The company was founded 10 years ago.", testNow))
}

func TestClassify_RecencyCues(t *testing.T) {
	h := NewHeuristic(30)

	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("Breaking: the bridge has collapsed.", testNow))
	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("Officials confirmed the leak earlier today.", testNow))
}

func TestClassify_FutureDateTreatedAsBreaking(t *testing.T) {
	h := NewHeuristic(30)

	// Legitimate news can be dated slightly ahead (embargoes, time
	// zones); it must not be routed to the historical path.
	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("The summit opens on March 20, 2026.", testNow))
}

func TestClassify_CurrentYearAnchorsToNow(t *testing.T) {
	h := NewHeuristic(30)

	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("Unemployment fell sharply in 2026.", testNow))
}

func TestClassify_NoSignalDefaultsHistorical(t *testing.T) {
	h := NewHeuristic(30)

	assert.Equal(t, model.ClaimHistoricalFact,
		h.Classify("Water boils at 100 degrees Celsius at sea level.", testNow))
}

func TestClassify_WindowBoundary(t *testing.T) {
	h := NewHeuristic(30)

	// 2026-02-14 is 29 days before testNow, inside the window.
	assert.Equal(t, model.ClaimBreakingNews,
		h.Classify("It happened on 2026-02-14.", testNow))
	// 2026-02-01 is outside.
	assert.Equal(t, model.ClaimHistoricalFact,
		h.Classify("It happened on 2026-02-01.", testNow))
}
