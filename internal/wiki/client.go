package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pfrederiksen/haunted-dates/internal/fetch"
)

const (
	// APIURL is the English Wikipedia action API endpoint.
	APIURL    = "https://en.wikipedia.org/w/api.php"
	UserAgent = "haunted-dates/1.0 (github.com/pfrederiksen/haunted-dates)"

	MinDelay = 200 * time.Millisecond
	MaxDelay = 500 * time.Millisecond
)

var (
	// ErrNotFound is returned for a title with no article.
	ErrNotFound = errors.New("page not found")
	// ErrDisambiguation is returned for disambiguation pages.
	ErrDisambiguation = errors.New("disambiguation page")
)

// Client queries a MediaWiki installation.
type Client struct {
	baseURL string
	fetcher *fetch.Client
}

// NewClient creates a client for the API at baseURL using fetcher for
// transport.
func NewClient(baseURL string, fetcher *fetch.Client) *Client {
	if baseURL == "" {
		baseURL = APIURL
	}
	return &Client{baseURL: baseURL, fetcher: fetcher}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type pageResponse struct {
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			Missing   bool              `json:"missing"`
			Invalid   bool              `json:"invalid"`
			Extract   string            `json:"extract"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to limit article titles matching query, best first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var result searchResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	titles := make([]string, 0, len(result.Query.Search))
	for _, s := range result.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

// Page fetches the plain-text extract of title, following redirects.
func (c *Client) Page(ctx context.Context, title string) (*Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|pageprops")
	params.Set("explaintext", "1")
	params.Set("exsectionformat", "wiki")
	params.Set("redirects", "1")
	params.Set("titles", title)
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var result pageResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, fmt.Errorf("fetching page %q: %w", title, err)
	}
	if len(result.Query.Pages) == 0 {
		return nil, ErrNotFound
	}

	p := result.Query.Pages[0]
	if p.Missing || p.Invalid {
		return nil, ErrNotFound
	}
	if _, ok := p.PageProps["disambiguation"]; ok {
		return nil, ErrDisambiguation
	}
	return NewPage(p.Title, p.Extract), nil
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	header := http.Header{}
	header.Set("User-Agent", UserAgent)
	header.Set("Accept", "application/json")

	body, err := c.fetcher.Get(ctx, c.baseURL+"?"+params.Encode(), header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
