// Package verify routes extracted claims through temporal triage to the
// appropriate verification path and joins the per-claim results.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/triage"
)

// ClaimChecker is one verification path (consensus search or fact-check
// lookup).
type ClaimChecker interface {
	Check(ctx context.Context, claim string) (model.Claim, error)
}

// Verifier fans claims out to their verification paths.
type Verifier struct {
	triage       triage.Classifier
	breaking     ClaimChecker
	historical   ClaimChecker
	claimTimeout time.Duration
	now          func() time.Time
}

// NewVerifier creates a Verifier. claimTimeout bounds each individual
// claim's verification; a claim that exceeds it degrades to Unverified
// without failing the request.
func NewVerifier(t triage.Classifier, breaking, historical ClaimChecker, claimTimeout time.Duration) *Verifier {
	if claimTimeout <= 0 {
		claimTimeout = 3 * time.Second
	}
	return &Verifier{
		triage:       t,
		breaking:     breaking,
		historical:   historical,
		claimTimeout: claimTimeout,
		now:          time.Now,
	}
}

// WithNow fixes the clock for testing.
func (v *Verifier) WithNow(fn func() time.Time) *Verifier {
	v.now = fn
	return v
}

// VerifyAll triages and verifies every claim concurrently, then joins with
// a wait-all barrier. Results keep the input order. Provider errors and
// timeouts produce an Unverified verdict; they never fail the batch.
func (v *Verifier) VerifyAll(ctx context.Context, claims []string) []model.Claim {
	if len(claims) == 0 {
		return []model.Claim{}
	}

	now := v.now()
	results := make([]model.Claim, len(claims))

	g, gCtx := errgroup.WithContext(ctx)
	for i, claim := range claims {
		g.Go(func() error {
			results[i] = v.verifyOne(gCtx, claim, now)
			return nil
		})
	}
	// Workers never return errors; the group is a wait-all barrier.
	_ = g.Wait()

	return results
}

func (v *Verifier) verifyOne(ctx context.Context, claim string, now time.Time) model.Claim {
	class := v.triage.Classify(claim, now)

	checker := v.historical
	if class == model.ClaimBreakingNews {
		checker = v.breaking
	}

	cctx, cancel := context.WithTimeout(ctx, v.claimTimeout)
	defer cancel()

	result, err := checker.Check(cctx, claim)
	result.Text = claim
	result.Classification = class
	if err != nil {
		zap.L().Warn("claim verification degraded to unverified",
			zap.String("claim", claim),
			zap.String("classification", string(class)),
			zap.Error(err),
		)
		result.Verdict = model.VerdictUnverified
		result.Confidence = 0
		if cctx.Err() != nil {
			result.Explanation = "Verification timed out."
		} else {
			result.Explanation = "Verification provider unavailable."
		}
		result.Sources = nil
	}

	return result
}
