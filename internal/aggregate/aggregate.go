// Package aggregate merges the analyzer's raw assessment with claim
// verdicts into the final result. The policy is tiered rather than
// all-or-nothing: an unverifiable claim is a mild warning, not proof of
// fabrication, and only a positively false claim caps the score.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/credlens/credcheck/internal/config"
	"github.com/credlens/credcheck/internal/model"
)

// Aggregator applies the tiered scoring policy.
type Aggregator struct {
	cfg config.VerifyConfig
}

// New creates an Aggregator with the policy constants from configuration.
func New(cfg config.VerifyConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// verdictCounts tallies claims by verdict.
type verdictCounts struct {
	verified        int
	falseCount      int
	misleading      int
	mixed           int
	unsubstantiated int
	unverified      int
}

func countVerdicts(claims []model.Claim) verdictCounts {
	var c verdictCounts
	for _, claim := range claims {
		switch claim.Verdict {
		case model.VerdictVerified:
			c.verified++
		case model.VerdictFalse:
			c.falseCount++
		case model.VerdictMisleading:
			c.misleading++
		case model.VerdictMixed:
			c.mixed++
		case model.VerdictUnsubstantiated:
			c.unsubstantiated++
		default:
			c.unverified++
		}
	}
	return c
}

// Score applies the tiered policy to the analyzer's trust estimate, in
// precedence order: any False caps the score; Misleading (and Mixed)
// verdicts subtract with a floor; Unsubstantiated-only degrades gently;
// a fully verified claim set boosts the score toward the configured
// target. The label is derived from the final score alone.
func (a *Aggregator) Score(base int, claims []model.Claim) (int, model.Label) {
	score := model.ClampScore(base)
	c := countVerdicts(claims)

	switch {
	case c.falseCount > 0:
		if score > a.cfg.FalseScoreCap {
			score = a.cfg.FalseScoreCap
		}

	case c.misleading > 0 || c.mixed > 0:
		score -= a.cfg.MisleadingPenalty * (c.misleading + c.mixed)
		if score < a.cfg.MisleadingFloor {
			score = a.cfg.MisleadingFloor
		}

	case c.unsubstantiated > 0:
		score -= a.cfg.UnsubstantiatedPenalty * c.unsubstantiated
		if score < a.cfg.UnsubstantiatedFloor {
			score = a.cfg.UnsubstantiatedFloor
		}

	case c.verified > 0 && c.verified+c.unverified == len(claims):
		// Everything checkable checked out.
		if score < a.cfg.VerifiedBoostTarget {
			score += (a.cfg.VerifiedBoostTarget - score + 1) / 2
		}
	}

	score = model.ClampScore(score)
	return score, model.LabelForScore(score)
}

// ExtendSummary appends a human-readable account of the claim verdicts to
// the explanation summary.
func ExtendSummary(summary string, claims []model.Claim) string {
	if len(claims) == 0 {
		return summary
	}

	c := countVerdicts(claims)
	parts := make([]string, 0, 5)
	add := func(n int, noun string) {
		if n == 1 {
			parts = append(parts, fmt.Sprintf("1 %s", noun))
		} else if n > 1 {
			parts = append(parts, fmt.Sprintf("%d %ss", n, noun))
		}
	}
	add(c.verified, "verified claim")
	add(c.falseCount, "false claim")
	add(c.misleading+c.mixed, "misleading claim")
	add(c.unsubstantiated, "unsubstantiated claim")
	add(c.unverified, "unverified claim")

	tail := fmt.Sprintf("Fact-check results: %s.", strings.Join(parts, ", "))
	if summary == "" {
		return tail
	}
	return summary + " " + tail
}

// FinalizeSnippets sorts snippets ascending by start index and removes
// duplicate (text, index) pairs, establishing the order the streaming
// endpoint must also follow.
func FinalizeSnippets(snippets []model.FlaggedSnippet) []model.FlaggedSnippet {
	if len(snippets) == 0 {
		return []model.FlaggedSnippet{}
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		if snippets[i].Index[0] != snippets[j].Index[0] {
			return snippets[i].Index[0] < snippets[j].Index[0]
		}
		return snippets[i].Index[1] < snippets[j].Index[1]
	})

	type key struct {
		text  string
		start int
		end   int
	}
	seen := make(map[key]struct{}, len(snippets))
	out := snippets[:0]
	for _, s := range snippets {
		k := key{s.Text, s.Index[0], s.Index[1]}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
