// Package factcheck is a thin client for the Google Fact Check Tools API
// (claims:search), which aggregates published fact-check verdicts.
package factcheck

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/credlens/credcheck/internal/resilience"
)

const defaultBaseURL = "https://factchecktools.googleapis.com/v1alpha1"

// Client queries published fact checks.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]ClaimRecord, error)
}

// ClaimRecord is one claim entry returned by claims:search.
type ClaimRecord struct {
	Text    string        `json:"text"`
	Reviews []ClaimReview `json:"claimReview"`
}

// ClaimReview is a single publisher's review of a claim.
type ClaimReview struct {
	Publisher     Publisher `json:"publisher"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	TextualRating string    `json:"textualRating"`
}

// Publisher identifies the fact-check organization.
type Publisher struct {
	Name string `json:"name"`
	Site string `json:"site"`
}

type searchResponse struct {
	Claims []ClaimRecord `json:"claims"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Fact Check Tools API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]ClaimRecord, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("query", query)
	q.Set("languageCode", "en")
	if maxResults > 0 {
		q.Set("pageSize", strconv.Itoa(maxResults))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/claims:search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "factcheck: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "factcheck: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "factcheck: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("factcheck: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "factcheck: unmarshal response")
	}

	return result.Claims, nil
}
