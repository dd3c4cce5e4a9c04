package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/haileyok/brandwatch/models"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultEndpoint is the recent search endpoint of the X API v2.
const DefaultEndpoint = "https://api.twitter.com/2/tweets/search/recent"

type Client struct {
	cli      *http.Client
	endpoint string
	bearer   string
}

// NewClient returns a search client authenticated with the given bearer
// token. Rate limiting and transient upstream failures are absorbed by the
// transport: 429s honor Retry-After and never surface to the caller.
func NewClient(endpoint string, bearer string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 5
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 60 * time.Second
	rc.Logger = nil

	return &Client{
		cli:      rc.StandardClient(),
		endpoint: endpoint,
		bearer:   bearer,
	}
}

type searchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
	Lang      string `json:"lang"`
}

func (c *Client) newSearchRequest(ctx context.Context, query string, max int) (*http.Request, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(max))
	q.Set("tweet.fields", "created_at,lang,author_id")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("User-Agent", "brandwatch/0.0.0")

	return req, nil
}

// SearchRecent returns up to max recent posts matching query, most recent
// first as returned by the API. Sentiment fields are left unset. Any
// auth, network, or decode failure fails the whole call with no partial
// results.
func (c *Client) SearchRecent(ctx context.Context, query string, max int) ([]models.Post, error) {
	req, err := c.newSearchRequest(ctx, query, max)
	if err != nil {
		return nil, err
	}

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("received non-200 response code: %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(sr.Data))
	for _, raw := range sr.Data {
		var t tweet
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("malformed post in response: %w", err)
		}

		posts = append(posts, models.Post{
			ID:        t.ID,
			Platform:  models.PlatformTwitter,
			AuthorID:  t.AuthorID,
			CreatedAt: normalizeCreatedAt(t.CreatedAt),
			Text:      t.Text,
			Lang:      t.Lang,
			RawJSON:   raw,
		})
	}

	return posts, nil
}

// normalizeCreatedAt rewrites parseable timestamps as RFC3339 UTC and keeps
// anything else verbatim as reported by the source.
func normalizeCreatedAt(s string) string {
	if s == "" {
		return ""
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}

	return t.UTC().Format(time.RFC3339)
}
