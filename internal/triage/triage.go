// Package triage decides which verification path a claim takes: breaking
// claims go to live consensus search, historical claims to fact-check
// databases. The heuristic lives behind an interface so it can later be
// replaced by a statistical classifier without touching callers.
package triage

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/credlens/credcheck/internal/model"
)

// Classifier assigns a temporal class to a claim. Implementations must be
// deterministic given (claim, now).
type Classifier interface {
	Classify(claim string, now time.Time) model.ClaimClass
}

// Heuristic classifies claims by embedded dates and lexical recency cues.
type Heuristic struct {
	window time.Duration
}

// NewHeuristic creates a Heuristic with the given recency window in days.
func NewHeuristic(windowDays int) *Heuristic {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Heuristic{window: time.Duration(windowDays) * 24 * time.Hour}
}

var (
	// "January 2, 2026", "Jan 2 2026"
	monthDayYearRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	// "2 January 2026"
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+(\d{4})\b`)
	// "2026-01-02"
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// bare year, e.g. "in 2019"
	yearRe = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

	// relative phrases resolved against now
	agoRe = regexp.MustCompile(`(?i)\b(\d+)\s+(minute|hour|day|week|month|year)s?\s+ago\b`)
)

var monthNums = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var recencyCues = []string{
	"today", "yesterday", "tonight", "this morning", "this afternoon",
	"this week", "breaking", "just now", "just announced", "moments ago",
	"earlier today", "developing story", "live updates",
}

// Classify applies the policy in order: embedded dates first, lexical
// recency cues second, and a conservative HistoricalFact default, which
// avoids spending live-search calls on claims that give no temporal signal.
func (h *Heuristic) Classify(claim string, now time.Time) model.ClaimClass {
	if ts, ok := h.extractDate(claim, now); ok {
		if now.Sub(ts) <= h.window {
			return model.ClaimBreakingNews
		}
		return model.ClaimHistoricalFact
	}

	lower := strings.ToLower(claim)
	for _, cue := range recencyCues {
		if strings.Contains(lower, cue) {
			return model.ClaimBreakingNews
		}
	}

	return model.ClaimHistoricalFact
}

// extractDate finds the most specific date mentioned in the claim. A date
// in the future (relative to now) is treated as current: future-dated
// legitimate news must not be aged into the historical path.
func (h *Heuristic) extractDate(claim string, now time.Time) (time.Time, bool) {
	if m := monthDayYearRe.FindStringSubmatch(claim); m != nil {
		month := monthNums[strings.ToLower(m[1][:3])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return clampFuture(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), now), true
	}

	if m := dayMonthYearRe.FindStringSubmatch(claim); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNums[strings.ToLower(m[2][:3])]
		year, _ := strconv.Atoi(m[3])
		return clampFuture(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), now), true
	}

	if m := isoDateRe.FindStringSubmatch(claim); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return clampFuture(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), now), true
		}
	}

	if m := agoRe.FindStringSubmatch(claim); m != nil {
		n, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch strings.ToLower(m[2]) {
		case "minute":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		case "year":
			d = time.Duration(n) * 365 * 24 * time.Hour
		}
		return now.Add(-d), true
	}

	// A bare year is the weakest signal: anchor to mid-year so "in 2019"
	// compares sensibly against the window.
	if m := yearRe.FindStringSubmatch(claim); m != nil {
		year, _ := strconv.Atoi(m[1])
		if year == now.Year() {
			// Current year alone says nothing about recency within it;
			// anchor to now so the window decides.
			return now, true
		}
		return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// clampFuture maps future dates onto now so the recency window classifies
// them as breaking rather than computing a negative age.
func clampFuture(ts, now time.Time) time.Time {
	if ts.After(now) {
		return now
	}
	return ts
}
