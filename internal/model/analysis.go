package model

import "time"

// Label classifies the overall trustworthiness of an article.
type Label string

const (
	LabelLikelyTrue Label = "Likely True"
	LabelSuspicious Label = "Suspicious"
	LabelLikelyFake Label = "Likely Fake"
)

// Label thresholds over the final trust score.
const (
	LikelyTrueThreshold = 70
	SuspiciousThreshold = 40
)

// LabelForScore maps a trust score to its label. The label is a pure
// function of the score; nothing else may influence it.
func LabelForScore(score int) Label {
	switch {
	case score >= LikelyTrueThreshold:
		return LabelLikelyTrue
	case score >= SuspiciousThreshold:
		return LabelSuspicious
	default:
		return LabelLikelyFake
	}
}

// Bias is the detected political leaning of an article.
type Bias string

const (
	BiasLeft        Bias = "Left"
	BiasLeftCenter  Bias = "Left-Center"
	BiasCenter      Bias = "Center"
	BiasRightCenter Bias = "Right-Center"
	BiasRight       Bias = "Right"
	BiasUnknown     Bias = "Unknown"
)

// SnippetType categorizes why a passage was flagged.
type SnippetType string

const (
	SnippetMisinformation SnippetType = "Misinformation"
	SnippetDisinformation SnippetType = "Disinformation"
	SnippetPropaganda     SnippetType = "Propaganda"
	SnippetFallacy        SnippetType = "Logical Fallacy"
	SnippetGeneric        SnippetType = "Generic"
)

// ClaimClass is the temporal triage outcome for a claim.
type ClaimClass string

const (
	ClaimBreakingNews   ClaimClass = "breaking_news"
	ClaimHistoricalFact ClaimClass = "historical_fact"
)

// Verdict is the verification outcome for a single claim.
type Verdict string

const (
	VerdictVerified        Verdict = "Verified"
	VerdictFalse           Verdict = "False"
	VerdictMisleading      Verdict = "Misleading"
	VerdictUnsubstantiated Verdict = "Unsubstantiated"
	VerdictMixed           Verdict = "Mixed"
	VerdictUnverified      Verdict = "Unverified"
)

// AnalysisRequest is the caller's input. Immutable once created.
type AnalysisRequest struct {
	Text         string `json:"text"`
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

// Source is a single piece of external evidence for a claim or snippet.
type Source struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet,omitempty"`
	Domain     string `json:"domain,omitempty"`
	IsCredible bool   `json:"is_credible"`
}

// FlaggedSnippet is a passage flagged by the analyzer, with its position in
// the normalized text. Index is [start, end); final lists are sorted
// ascending by Index[0].
type FlaggedSnippet struct {
	Text       string      `json:"text"`
	Type       SnippetType `json:"type"`
	Index      [2]int      `json:"index"`
	Reason     string      `json:"reason"`
	Severity   string      `json:"severity,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Sources    []Source    `json:"sources,omitempty"`
	IsQuote    bool        `json:"is_quote,omitempty"`
}

// Claim is a verifiable statement extracted from the article.
// Classification is set once by triage; Verdict exactly once by whichever
// verification path triage selected.
type Claim struct {
	Text           string     `json:"claim"`
	Classification ClaimClass `json:"classification"`
	Verdict        Verdict    `json:"status"`
	Explanation    string     `json:"explanation,omitempty"`
	Sources        []Source   `json:"sources,omitempty"`
	Confidence     float64    `json:"confidence"`
}

// Explanation describes the final score and how it was produced.
type Explanation struct {
	Summary     string `json:"summary"`
	GeneratedBy string `json:"generated_by"` // "ai" or "fallback"
}

// Metadata carries per-request counters exposed to callers.
type Metadata struct {
	SnippetsValidated   int    `json:"snippets_validated"`
	SnippetsFiltered    int    `json:"snippets_filtered"`
	FactChecksPerformed int    `json:"fact_checks_performed"`
	SourceDomainBias    Bias   `json:"source_domain_bias,omitempty"`
	Fingerprint         string `json:"fingerprint,omitempty"`
}

// AnalysisResult is the final output of one pipeline run. Assembled once at
// aggregation, read-only thereafter.
type AnalysisResult struct {
	TrustScore        int              `json:"trust_score"`
	Label             Label            `json:"label"`
	Bias              Bias             `json:"bias"`
	Explanation       Explanation      `json:"explanation"`
	FlaggedSnippets   []FlaggedSnippet `json:"flagged_snippets"`
	FactCheckedClaims []Claim          `json:"fact_checked_claims"`
	Metadata          Metadata         `json:"metadata"`
}

// Run records one completed analysis in the history store.
type Run struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	TrustScore  int       `json:"trust_score"`
	Label       Label     `json:"label"`
	Bias        Bias      `json:"bias"`
	GeneratedBy string    `json:"generated_by"`
	Result      []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClampScore bounds a trust score to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
