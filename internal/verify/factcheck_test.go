package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/pkg/factcheck"
)

type fakeFactCheck struct {
	records []factcheck.ClaimRecord
	err     error
}

func (f *fakeFactCheck) Search(ctx context.Context, query string, maxResults int) ([]factcheck.ClaimRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func review(publisher, rating, url string) factcheck.ClaimReview {
	return factcheck.ClaimReview{
		Publisher:     factcheck.Publisher{Name: publisher},
		URL:           url,
		Title:         "Fact check: " + rating,
		TextualRating: rating,
	}
}

func TestFactChecker_FalseRating(t *testing.T) {
	client := &fakeFactCheck{records: []factcheck.ClaimRecord{
		{Text: "claim", Reviews: []factcheck.ClaimReview{
			review("Snopes", "False", "https://snopes.com/fc/1"),
		}},
	}}
	f := NewFactChecker(client, 3)

	claim, err := f.Check(context.Background(), "claim")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictFalse, claim.Verdict)
	assert.InDelta(t, 0.8, claim.Confidence, 1e-9)
	require.Len(t, claim.Sources, 1)
	assert.Equal(t, "Snopes", claim.Sources[0].Title)
}

func TestFactChecker_SkipsUnmappableRatings(t *testing.T) {
	client := &fakeFactCheck{records: []factcheck.ClaimRecord{
		{Reviews: []factcheck.ClaimReview{
			review("A", "Satire", "https://a.example/1"),
			review("B", "Mostly True", "https://b.example/2"),
		}},
	}}
	f := NewFactChecker(client, 3)

	claim, err := f.Check(context.Background(), "claim")
	require.NoError(t, err)

	// Satire maps to nothing; the next review decides.
	assert.Equal(t, model.VerdictMisleading, claim.Verdict)
	assert.InDelta(t, 0.5, claim.Confidence, 1e-9)
}

func TestFactChecker_NoRecordIsUnverified(t *testing.T) {
	f := NewFactChecker(&fakeFactCheck{}, 3)

	claim, err := f.Check(context.Background(), "claim")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictUnverified, claim.Verdict)
	assert.Contains(t, claim.Explanation, "No fact-check record")
}

func TestFactChecker_ProviderErrorSurfaces(t *testing.T) {
	f := NewFactChecker(&fakeFactCheck{err: errors.New("quota")}, 3)

	_, err := f.Check(context.Background(), "claim")
	assert.Error(t, err)
}

func TestNormalizeRating(t *testing.T) {
	cases := []struct {
		rating string
		want   model.Verdict
	}{
		{"True", model.VerdictVerified},
		{"Accurate", model.VerdictVerified},
		{"False", model.VerdictFalse},
		{"Pants on Fire!", model.VerdictFalse},
		{"Debunked", model.VerdictFalse},
		{"Misleading", model.VerdictMisleading},
		{"Half True", model.VerdictMisleading},
		{"Mixture", model.VerdictMisleading},
		// Compound ratings must not collapse to the stronger word.
		{"Mostly False", model.VerdictMisleading},
		{"Mostly True", model.VerdictMisleading},
		{"Satire", model.VerdictUnverified},
		{"", model.VerdictUnverified},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeRating(tc.rating), tc.rating)
	}
}
