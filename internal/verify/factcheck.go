package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/resilience"
	"github.com/credlens/credcheck/pkg/factcheck"
)

// FactChecker verifies historical claims against published fact checks.
type FactChecker struct {
	client     factcheck.Client
	maxResults int
}

// NewFactChecker creates a FactChecker.
func NewFactChecker(client factcheck.Client, maxResults int) *FactChecker {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &FactChecker{client: client, maxResults: maxResults}
}

// Check queries the fact-check aggregator for the claim and maps the first
// review's native rating onto the internal verdict set. An empty result is
// Unverified: absence of a fact-check record is not evidence of falsity.
func (f *FactChecker) Check(ctx context.Context, claim string) (model.Claim, error) {
	result := model.Claim{
		Text:           claim,
		Classification: model.ClaimHistoricalFact,
	}

	records, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]factcheck.ClaimRecord, error) {
		return f.client.Search(ctx, claim, f.maxResults)
	})
	if err != nil {
		return result, eris.Wrap(err, "factcheck: search")
	}

	for _, rec := range records {
		for _, review := range rec.Reviews {
			verdict := NormalizeRating(review.TextualRating)
			if verdict == model.VerdictUnverified {
				continue
			}

			result.Verdict = verdict
			result.Explanation = review.Title
			if result.Explanation == "" {
				result.Explanation = fmt.Sprintf("Rated %q by %s", review.TextualRating, review.Publisher.Name)
			}
			if verdict == model.VerdictVerified || verdict == model.VerdictFalse {
				result.Confidence = 0.8
			} else {
				result.Confidence = 0.5
			}
			if review.URL != "" {
				result.Sources = append(result.Sources, model.Source{
					Title:      review.Publisher.Name,
					URL:        review.URL,
					Snippet:    review.Title,
					Domain:     ExtractDomain(review.URL),
					IsCredible: true,
				})
			}
			return result, nil
		}
	}

	result.Verdict = model.VerdictUnverified
	result.Explanation = "No fact-check record found for this claim."
	return result, nil
}

// NormalizeRating maps a publisher's free-text rating vocabulary onto the
// internal verdict enum. Unknown vocabularies map to Unverified.
func NormalizeRating(rating string) model.Verdict {
	r := strings.ToLower(rating)

	for _, w := range []string{"misleading", "half", "mostly", "mixture", "mixed"} {
		if strings.Contains(r, w) {
			return model.VerdictMisleading
		}
	}
	for _, w := range []string{"false", "incorrect", "debunked", "pants on fire", "fake"} {
		if strings.Contains(r, w) {
			return model.VerdictFalse
		}
	}
	for _, w := range []string{"true", "correct", "accurate", "verified"} {
		if strings.Contains(r, w) {
			return model.VerdictVerified
		}
	}

	return model.VerdictUnverified
}
