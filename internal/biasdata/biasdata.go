// Package biasdata holds a static database of media-outlet bias ratings,
// derived from general consensus ratings (AllSides, Ad Fontes). Used to
// attribute a source-domain bias when the caller supplies the article URL.
package biasdata

import (
	"net/url"
	"strings"

	"github.com/credlens/credcheck/internal/model"
)

var domainBias = map[string]model.Bias{
	// Left
	"cnn.com":           model.BiasLeft,
	"msnbc.com":         model.BiasLeft,
	"huffpost.com":      model.BiasLeft,
	"vox.com":           model.BiasLeft,
	"theguardian.com":   model.BiasLeft,
	"motherjones.com":   model.BiasLeft,
	"salon.com":         model.BiasLeft,
	"slate.com":         model.BiasLeft,
	"democracynow.org":  model.BiasLeft,
	"newyorker.com":     model.BiasLeft,
	"thedailybeast.com": model.BiasLeft,

	// Left-Center
	"nytimes.com":        model.BiasLeftCenter,
	"washingtonpost.com": model.BiasLeftCenter,
	"nbcnews.com":        model.BiasLeftCenter,
	"abcnews.go.com":     model.BiasLeftCenter,
	"cbsnews.com":        model.BiasLeftCenter,
	"time.com":           model.BiasLeftCenter,
	"theatlantic.com":    model.BiasLeftCenter,
	"bloomberg.com":      model.BiasLeftCenter,
	"npr.org":            model.BiasLeftCenter,

	// Center
	"apnews.com":    model.BiasCenter,
	"reuters.com":   model.BiasCenter,
	"usatoday.com":  model.BiasCenter,
	"bbc.com":       model.BiasCenter,
	"bbc.co.uk":     model.BiasCenter,
	"csmonitor.com": model.BiasCenter,
	"newsweek.com":  model.BiasCenter,
	"thehill.com":   model.BiasCenter,
	"wsj.com":       model.BiasCenter,
	"axios.com":     model.BiasCenter,

	// Right-Center
	"washingtonexaminer.com": model.BiasRightCenter,
	"nypost.com":             model.BiasRightCenter,
	"washingtontimes.com":    model.BiasRightCenter,
	"realclearpolitics.com":  model.BiasRightCenter,
	"marketwatch.com":        model.BiasRightCenter,
	"reason.com":             model.BiasRightCenter,

	// Right
	"foxnews.com":       model.BiasRight,
	"breitbart.com":     model.BiasRight,
	"dailywire.com":     model.BiasRight,
	"thefederalist.com": model.BiasRight,
	"newsmax.com":       model.BiasRight,
	"oann.com":          model.BiasRight,
}

// ForURL returns the bias rating of the outlet that published rawURL, or
// BiasUnknown when the domain is not in the database.
func ForURL(rawURL string) model.Bias {
	if rawURL == "" {
		return model.BiasUnknown
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.BiasUnknown
	}
	return ForDomain(u.Host)
}

// ForDomain returns the bias rating for a bare domain.
func ForDomain(domain string) model.Bias {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	for {
		if b, ok := domainBias[domain]; ok {
			return b
		}
		i := strings.Index(domain, ".")
		if i < 0 || strings.Index(domain[i+1:], ".") < 0 {
			return model.BiasUnknown
		}
		domain = domain[i+1:]
	}
}
