// Package fallback implements the offline classifier used when the AI
// analyzer is unavailable. It evaluates a pre-trained TF-IDF + linear model
// loaded once at startup; given the same artifact and input it is fully
// deterministic. It produces a trust score and label only — no claims and
// no flagged snippets.
package fallback

import (
	"encoding/json"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/model"
)

// Artifact is the serialized model produced by the offline training job.
// The vocabulary maps terms (unigrams through NGramMax-grams, space-joined)
// to coefficient/IDF indexes.
type Artifact struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Coef       []float64      `json:"coefficients"`
	Intercept  float64        `json:"intercept"`
	NGramMax   int            `json:"ngram_max"`
}

// Classifier scores text with the offline linear model.
type Classifier struct {
	art  Artifact
	bias *biasDetector
}

// Result is the outcome of offline classification.
type Result struct {
	TrustScore int
	Label      model.Label
	Bias       model.Bias
	Confidence float64
}

// Load reads and validates the model artifact. A missing or malformed
// artifact is a startup-fatal condition: the service must not run without
// its degradation path.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fallback: read model artifact %s", path)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, eris.Wrapf(err, "fallback: parse model artifact %s", path)
	}

	if len(art.Vocabulary) == 0 {
		return nil, eris.Errorf("fallback: model artifact %s has empty vocabulary", path)
	}
	if len(art.Coef) != len(art.Vocabulary) || len(art.IDF) != len(art.Vocabulary) {
		return nil, eris.Errorf("fallback: model artifact %s dimension mismatch: vocab=%d coef=%d idf=%d",
			path, len(art.Vocabulary), len(art.Coef), len(art.IDF))
	}
	if art.NGramMax <= 0 {
		art.NGramMax = 1
	}

	zap.L().Info("fallback model loaded",
		zap.String("path", path),
		zap.Int("vocabulary_size", len(art.Vocabulary)),
		zap.Int("ngram_max", art.NGramMax),
	)

	return &Classifier{art: art, bias: newBiasDetector()}, nil
}

// Classify scores text (optionally with title) against the offline model.
func (c *Classifier) Classify(text, title string) Result {
	features := c.vectorize(prepare(text, title))

	score := c.art.Intercept
	for idx, val := range features {
		score += c.art.Coef[idx] * val
	}

	// Decision score → probability via sigmoid; positive class is "real",
	// so the probability maps directly onto the trust scale.
	prob := 1 / (1 + math.Exp(-score))

	trust := int(prob * 100)
	trust = adjustForStyle(trust, text)
	trust = model.ClampScore(trust)

	return Result{
		TrustScore: trust,
		Label:      model.LabelForScore(trust),
		Bias:       c.bias.detect(text),
		Confidence: math.Abs(prob-0.5) * 2,
	}
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s.,!?'"-]`)

// prepare folds text the way the training job did: title prepended, tags
// and URLs assumed already stripped upstream, lowercase, punctuation
// reduced to a basic set, whitespace collapsed.
func prepare(text, title string) []string {
	combined := text
	if title != "" {
		combined = title + ". " + text
	}
	combined = strings.ToLower(combined)
	combined = nonWordRe.ReplaceAllString(combined, " ")
	combined = strings.NewReplacer(".", " ", ",", " ", "!", " ", "?", " ", `"`, " ").Replace(combined)
	return strings.Fields(combined)
}

// vectorize builds an L2-normalized TF-IDF vector over the model vocabulary,
// returned sparse as index → weight.
func (c *Classifier) vectorize(tokens []string) map[int]float64 {
	counts := make(map[int]float64)
	for n := 1; n <= c.art.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := c.art.Vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	var sumSq float64
	for idx := range counts {
		counts[idx] *= c.art.IDF[idx]
		sumSq += counts[idx] * counts[idx]
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}

// adjustForStyle nudges the score down for stylistic fake-news markers the
// linear model underweights on short inputs: shouting and exclamation
// density.
func adjustForStyle(trust int, text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return trust
	}

	var caps int
	for _, w := range words {
		if len(w) > 2 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			caps++
		}
	}
	capsRatio := float64(caps) / float64(len(words))
	bangRatio := float64(strings.Count(text, "!")) / float64(len(words))

	if capsRatio > 0.1 {
		trust -= 5
	}
	if bangRatio > 0.05 {
		trust -= 5
	}
	return trust
}
