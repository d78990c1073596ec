package verify

import (
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Allowlist is the curated set of established news domains whose coverage
// may count toward consensus. Open-web results are too noisy to gate a
// falsity judgment, so anything off this list is ignored.
type Allowlist struct {
	domains map[string]struct{}
}

// defaultTrustedDomains seeds the allowlist when no config file is given.
var defaultTrustedDomains = []string{
	"reuters.com", "apnews.com", "bbc.com", "npr.org",
	"pbs.org", "wsj.com", "bloomberg.com", "snopes.com",
	"nytimes.com", "washingtonpost.com", "theguardian.com",
	"ft.com", "latimes.com", "usatoday.com", "politico.com",
	"axios.com", "abcnews.go.com", "cbsnews.com", "nbcnews.com",
	"cnn.com",
}

// DefaultAllowlist returns the built-in trusted domain set.
func DefaultAllowlist() *Allowlist {
	return NewAllowlist(defaultTrustedDomains)
}

// NewAllowlist builds an Allowlist from explicit domains.
func NewAllowlist(domains []string) *Allowlist {
	m := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "www."))
		if d != "" {
			m[d] = struct{}{}
		}
	}
	return &Allowlist{domains: m}
}

// LoadAllowlist reads the trusted domain set from a YAML file.
func LoadAllowlist(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: read allowlist %s", path)
	}

	var wrapper struct {
		TrustedDomains []string `yaml:"trusted_domains"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "verify: parse allowlist %s", path)
	}
	if len(wrapper.TrustedDomains) == 0 {
		return nil, eris.Errorf("verify: allowlist %s lists no trusted domains", path)
	}

	return NewAllowlist(wrapper.TrustedDomains), nil
}

// Contains reports whether domain (or a parent domain of it) is trusted.
func (a *Allowlist) Contains(domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	for domain != "" {
		if _, ok := a.domains[domain]; ok {
			return true
		}
		i := strings.Index(domain, ".")
		if i < 0 {
			return false
		}
		domain = domain[i+1:]
	}
	return false
}

// Domains returns the trusted domains, for passing to search grounding.
func (a *Allowlist) Domains() []string {
	out := make([]string, 0, len(a.domains))
	for d := range a.domains {
		out = append(out, d)
	}
	return out
}

// ExtractDomain returns the registrable host of a URL, without "www.".
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}
