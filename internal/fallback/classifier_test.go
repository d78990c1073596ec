package fallback

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlens/credcheck/internal/model"
)

func writeArtifact(t *testing.T, art Artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testArtifact() Artifact {
	return Artifact{
		Vocabulary: map[string]int{"confirmed": 0, "hoax": 1},
		IDF:        []float64{1, 1},
		Coef:       []float64{3.0, -3.0},
		Intercept:  0,
		NGramMax:   1,
	}
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_DimensionMismatch(t *testing.T) {
	art := testArtifact()
	art.Coef = []float64{1.0}

	_, err := Load(writeArtifact(t, art))
	assert.Error(t, err)
}

func TestLoad_EmptyVocabulary(t *testing.T) {
	_, err := Load(writeArtifact(t, Artifact{}))
	assert.Error(t, err)
}

func TestClassify_SeparatesClasses(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	real := c.Classify("officials confirmed the budget figures today", "")
	fake := c.Classify("experts say the landing was a hoax all along", "")

	assert.Greater(t, real.TrustScore, 70)
	assert.Equal(t, model.LabelLikelyTrue, real.Label)
	assert.Less(t, fake.TrustScore, 40)
	assert.Equal(t, model.LabelLikelyFake, fake.Label)
	assert.Greater(t, real.Confidence, 0.5)
}

func TestClassify_NoVocabularyHitsIsNeutral(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	r := c.Classify("completely unrelated words about gardening", "")

	assert.Equal(t, 50, r.TrustScore)
	assert.Zero(t, r.Confidence)
}

func TestClassify_TitleContributes(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	without := c.Classify("unrelated words here", "")
	with := c.Classify("unrelated words here", "report confirmed")

	assert.Greater(t, with.TrustScore, without.TrustScore)
}

func TestClassify_StylePenalties(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	calm := c.Classify("the story is not in the vocabulary", "")
	shouty := c.Classify("WAKE UP!!! THEY ARE LYING!!! SHARE THIS NOW!!!", "")

	assert.Equal(t, 50, calm.TrustScore)
	assert.Equal(t, 40, shouty.TrustScore)
}

func TestClassify_Deterministic(t *testing.T) {
	c, err := Load(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	a := c.Classify("officials confirmed the hoax story", "t")
	b := c.Classify("officials confirmed the hoax story", "t")

	assert.Equal(t, a, b)
}

func TestBiasDetector(t *testing.T) {
	d := newBiasDetector()

	left := "The progressive coalition demands social justice, diversity, equity and inclusion alongside a higher minimum wage."
	right := "The conservative caucus backs free market capitalism, tax cuts, border security and family values."
	neutral := "The committee reviewed the quarterly irrigation report."

	assert.Equal(t, model.BiasLeft, d.detect(left))
	assert.Equal(t, model.BiasRight, d.detect(right))
	assert.Equal(t, model.BiasCenter, d.detect(neutral))
}

func TestBiasDetector_MixedLeansCenter(t *testing.T) {
	d := newBiasDetector()

	mixed := "Liberal and conservative lawmakers argued over regulation and deregulation."

	b := d.detect(mixed)
	assert.Contains(t, []model.Bias{model.BiasCenter, model.BiasLeftCenter, model.BiasRightCenter}, b)
}

func TestNGramVectorization(t *testing.T) {
	art := Artifact{
		Vocabulary: map[string]int{"fake news": 0},
		IDF:        []float64{1},
		Coef:       []float64{-4.0},
		Intercept:  0,
		NGramMax:   2,
	}
	c, err := Load(writeArtifact(t, art))
	require.NoError(t, err)

	r := c.Classify("they called it fake news again", "")
	assert.Less(t, r.TrustScore, 40)
}
