// Package validate is the last gate before flagged snippets reach a user.
// A generative model can assert falsity confidently and wrongly from stale
// training knowledge; snippets that claim something is false or does not
// exist must carry corroborating sources or they do not ship.
package validate

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/model"
)

// negativeClaimPatterns match assertions of non-existence, falsity, or
// denial that require evidentiary backing.
var negativeClaimPatterns = []string{
	// Non-existence claims
	`(does not|doesn't|do not|don't) exist`,
	`(never|no) existed`,
	`(is|are) (not|no) real`,
	`(is|are) fake`,
	`(is|are) fabricated`,
	`made up`,
	`fictional`,
	`(no|zero|never) evidence`,

	// Falsity claims
	`(is|are) false`,
	`(is|are) untrue`,
	`(is|are) incorrect`,
	`(is|are) wrong`,
	`(has|have) been debunked`,
	`(never|didn't) happen`,
	`(never|didn't) occur`,
	`(no|not) (true|accurate|real|valid)`,

	// Denial claims
	`(no|not) (proof|evidence|data|records)`,
	`(cannot|can't) be (verified|confirmed|validated)`,
	`(not|no) documented`,
	`(not|no) confirmed`,

	// Temporal impossibility
	`(could not|couldn't) have (happened|occurred|existed)`,
	`(impossible|implausible) (that|for)`,
}

// Validator enforces the negative-assertion evidence requirement.
type Validator struct {
	patterns []*regexp.Regexp
	strict   bool
}

// Outcome reports what validation did, for response metadata. Validated
// counts the snippets examined, including any that were then filtered.
type Outcome struct {
	Validated int
	Filtered  int
	Softened  int
}

// New creates a Validator. In strict mode unsupported negative assertions
// are dropped; otherwise they are kept with softened wording and reduced
// confidence.
func New(strict bool) *Validator {
	patterns := make([]*regexp.Regexp, len(negativeClaimPatterns))
	for i, p := range negativeClaimPatterns {
		patterns[i] = regexp.MustCompile(`(?i)` + p)
	}
	return &Validator{patterns: patterns, strict: strict}
}

// ContainsNegativeAssertion reports whether text asserts falsity,
// non-existence, or denial.
func (v *Validator) ContainsNegativeAssertion(text string) bool {
	for _, p := range v.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Apply validates flagged snippets. A snippet whose text or reason carries
// a negative assertion must have at least one source; sources attached to
// the claims list count when the snippet text matches a verified claim's
// evidence. Valid snippets pass through unchanged.
func (v *Validator) Apply(snippets []model.FlaggedSnippet, claims []model.Claim) ([]model.FlaggedSnippet, Outcome) {
	var outcome Outcome
	if len(snippets) == 0 {
		return []model.FlaggedSnippet{}, outcome
	}
	outcome.Validated = len(snippets)

	out := make([]model.FlaggedSnippet, 0, len(snippets))
	for _, s := range snippets {
		if len(s.Sources) > 0 || !v.ContainsNegativeAssertion(s.Text+" "+s.Reason) {
			out = append(out, s)
			continue
		}

		// Try to borrow evidence from a claim that covers this snippet.
		if srcs := borrowSources(s, claims); len(srcs) > 0 {
			s.Sources = srcs
			out = append(out, s)
			continue
		}

		if v.strict {
			zap.L().Info("filtering unsupported negative assertion",
				zap.String("snippet", s.Text),
			)
			outcome.Filtered++
			continue
		}

		s.Reason = soften(s.Reason)
		s.Confidence = s.Confidence / 2
		outcome.Softened++
		out = append(out, s)
	}

	return out, outcome
}

// borrowSources returns evidence from a claim whose text overlaps the
// snippet and whose verdict actually supports a negative statement
// (False with sources, or any verdict carrying sources that discuss it).
func borrowSources(s model.FlaggedSnippet, claims []model.Claim) []model.Source {
	snippet := strings.ToLower(s.Text)
	for _, c := range claims {
		if len(c.Sources) == 0 {
			continue
		}
		claim := strings.ToLower(c.Text)
		if strings.Contains(snippet, claim) || strings.Contains(claim, snippet) {
			return c.Sources
		}
	}
	return nil
}

// soften rewords an unsupported negative assertion as uncertainty rather
// than deleting it.
func soften(reason string) string {
	if reason == "" {
		return "This statement could not be verified against external sources."
	}
	return "Unverified: " + reason + " (no corroborating sources found)"
}
