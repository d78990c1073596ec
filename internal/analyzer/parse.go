package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/credlens/credcheck/internal/model"
)

// rawPayload is the strict schema the model is asked to produce.
type rawPayload struct {
	TrustScore       int          `json:"trust_score"`
	Bias             string       `json:"bias"`
	Summary          string       `json:"summary"`
	FlaggedSnippets  []rawSnippet `json:"flagged_snippets"`
	VerifiableClaims []string     `json:"verifiable_claims"`
}

type rawSnippet struct {
	Text       string      `json:"text"`
	Type       string      `json:"type"`
	Reason     string      `json:"reason"`
	Severity   string      `json:"severity"`
	Confidence float64     `json:"confidence"`
	IsQuote    bool        `json:"is_quote"`
	Sources    []rawSource `json:"sources"`
}

type rawSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseResponse decodes the model's JSON output. The strict schema is tried
// on the whole response first; when the model wraps its JSON in prose or
// markdown fences, a structural extractor recovers the first balanced
// object.
func parseResponse(out string) (*RawAnalysis, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, eris.New("analyzer: empty model output")
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		return fromPayload(payload), nil
	}

	if m := fencedJSONRe.FindStringSubmatch(trimmed); len(m) > 1 {
		if err := json.Unmarshal([]byte(m[1]), &payload); err == nil {
			return fromPayload(payload), nil
		}
	}

	if obj := firstBalancedObject(trimmed); obj != "" {
		if err := json.Unmarshal([]byte(obj), &payload); err == nil {
			return fromPayload(payload), nil
		}
	}

	return nil, eris.Errorf("analyzer: no parseable JSON object in %d bytes of output", len(out))
}

// firstBalancedObject returns the first top-level {...} span in s, honoring
// string literals and escapes.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func fromPayload(p rawPayload) *RawAnalysis {
	raw := &RawAnalysis{
		TrustScore: model.ClampScore(p.TrustScore),
		Bias:       normalizeBias(p.Bias),
		Summary:    p.Summary,
		Claims:     make([]string, 0, len(p.VerifiableClaims)),
	}

	for _, c := range p.VerifiableClaims {
		c = strings.TrimSpace(c)
		if c != "" {
			raw.Claims = append(raw.Claims, c)
		}
	}

	for _, s := range p.FlaggedSnippets {
		snippet := model.FlaggedSnippet{
			Text:       strings.TrimSpace(s.Text),
			Type:       normalizeSnippetType(s.Type),
			Reason:     s.Reason,
			Severity:   s.Severity,
			Confidence: s.Confidence,
			IsQuote:    s.IsQuote,
		}
		for _, src := range s.Sources {
			if src.URL == "" {
				continue
			}
			snippet.Sources = append(snippet.Sources, model.Source{
				Title:   src.Title,
				URL:     src.URL,
				Snippet: src.Snippet,
			})
		}
		raw.Snippets = append(raw.Snippets, snippet)
	}

	return raw
}

func normalizeBias(s string) model.Bias {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return model.BiasLeft
	case "left-center", "center-left":
		return model.BiasLeftCenter
	case "center":
		return model.BiasCenter
	case "right-center", "center-right":
		return model.BiasRightCenter
	case "right":
		return model.BiasRight
	default:
		return model.BiasUnknown
	}
}

func normalizeSnippetType(s string) model.SnippetType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "misinformation":
		return model.SnippetMisinformation
	case "disinformation":
		return model.SnippetDisinformation
	case "propaganda":
		return model.SnippetPropaganda
	case "logical fallacy", "fallacy":
		return model.SnippetFallacy
	default:
		return model.SnippetGeneric
	}
}
