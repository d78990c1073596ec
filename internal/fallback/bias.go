package fallback

import (
	"strings"

	"github.com/credlens/credcheck/internal/model"
)

// biasDetector estimates political leaning from keyword frequencies. It is
// a coarse signal used only on the fallback path; the AI analyzer produces
// its own bias assessment.
type biasDetector struct {
	left    []string
	right   []string
	extreme []string
}

func newBiasDetector() *biasDetector {
	return &biasDetector{
		left: []string{
			"progressive", "liberal", "socialism", "social justice", "equality",
			"climate change", "healthcare for all", "workers rights", "union",
			"diversity", "inclusion", "equity", "minimum wage", "regulation",
		},
		right: []string{
			"conservative", "tradition", "capitalism", "free market", "liberty",
			"small government", "deregulation", "second amendment", "patriot",
			"family values", "law and order", "border security", "tax cuts",
		},
		extreme: []string{
			"communist", "fascist", "tyranny", "dictator",
			"destroy", "attack on", "war on", "fake news", "mainstream media",
		},
	}
}

func (d *biasDetector) detect(text string) model.Bias {
	lower := strings.ToLower(text)

	count := func(keywords []string) int {
		n := 0
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				n++
			}
		}
		return n
	}

	left := count(d.left)
	right := count(d.right)
	extreme := count(d.extreme)

	total := left + right
	if total == 0 {
		return model.BiasCenter
	}

	score := float64(right-left) / float64(total)
	if extreme > 2 {
		score *= 1.5
	}

	switch {
	case score < -0.4:
		return model.BiasLeft
	case score < -0.1:
		return model.BiasLeftCenter
	case score > 0.4:
		return model.BiasRight
	case score > 0.1:
		return model.BiasRightCenter
	default:
		return model.BiasCenter
	}
}
