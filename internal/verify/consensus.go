package verify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/resilience"
	"github.com/credlens/credcheck/pkg/websearch"
)

// Consensus credibility from the number of distinct trusted domains
// covering a claim.
const (
	credHighConsensus     = 0.9
	credModerateConsensus = 0.7
	credSingleSource      = 0.4
	credNoSources         = 0.1
)

// ConsensusSearcher verifies breaking-news claims by counting independent
// coverage across the trusted-domain allowlist.
type ConsensusSearcher struct {
	search     websearch.Client
	allowlist  *Allowlist
	limiter    *rate.Limiter
	maxResults int
}

// NewConsensusSearcher creates a ConsensusSearcher. ratePerSecond bounds
// outbound search calls across all concurrent claims.
func NewConsensusSearcher(search websearch.Client, allowlist *Allowlist, ratePerSecond float64, maxResults int) *ConsensusSearcher {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &ConsensusSearcher{
		search:     search,
		allowlist:  allowlist,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		maxResults: maxResults,
	}
}

// Check searches recent coverage for the claim and maps distinct trusted
// domain count onto a verdict: 3+ domains is strong consensus, 2 weaker
// but still verified, 1 a single source, 0 no evidence. A claim that only
// lacks coverage is Unsubstantiated, never False.
func (c *ConsensusSearcher) Check(ctx context.Context, claim string) (model.Claim, error) {
	result := model.Claim{
		Text:           claim,
		Classification: model.ClaimBreakingNews,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return result, eris.Wrap(err, "consensus: rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*websearch.SearchResponse, error) {
		return c.search.Search(ctx, websearch.SearchRequest{
			Query:      claim,
			MaxResults: c.maxResults,
			RecentOnly: true,
		})
	})
	if err != nil {
		return result, eris.Wrap(err, "consensus: search")
	}

	seen := make(map[string]struct{})
	for _, item := range resp.Items {
		domain := ExtractDomain(item.Link)
		if domain == "" || !c.allowlist.Contains(domain) {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		result.Sources = append(result.Sources, model.Source{
			Title:      item.Title,
			URL:        item.Link,
			Snippet:    item.Snippet,
			Domain:     domain,
			IsCredible: true,
		})
	}

	switch n := len(seen); {
	case n >= 3:
		result.Verdict = model.VerdictVerified
		result.Confidence = credHighConsensus
		result.Explanation = fmt.Sprintf("Corroborated by %d independent trusted sources.", n)
	case n == 2:
		result.Verdict = model.VerdictVerified
		result.Confidence = credModerateConsensus
		result.Explanation = "Corroborated by 2 independent trusted sources."
	case n == 1:
		result.Verdict = model.VerdictUnsubstantiated
		result.Confidence = credSingleSource
		result.Explanation = "Only a single trusted source covers this claim."
	default:
		result.Verdict = model.VerdictUnsubstantiated
		result.Confidence = credNoSources
		result.Explanation = "No trusted sources found covering this claim."
	}

	return result, nil
}
