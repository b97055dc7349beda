package websearch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/fetch"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

const (
	// SearchURL is the DuckDuckGo endpoint that serves results without
	// JavaScript.
	SearchURL = "https://html.duckduckgo.com/html/"

	// MaxResults is how many links one query contributes.
	MaxResults = 3

	MinDelay = 1 * time.Second
	MaxDelay = 2 * time.Second

	// PageMinDelay and PageMaxDelay bound the pause before each result
	// page is fetched.
	PageMinDelay = 1 * time.Second
	PageMaxDelay = 2 * time.Second
)

var (
	// Blocklist holds registrable domains whose pages never carry useful
	// history.
	Blocklist = []string{
		"youtube.com", "facebook.com", "twitter.com", "instagram.com",
		"pinterest.com", "amazon.com", "ebay.com",
	}

	// Allowlist holds registrable domains promoted to the front.
	Allowlist = []string{
		"nps.gov", "history.com", "britannica.com", "si.edu",
		"loc.gov", "archives.gov",
	}

	// allowHostWords promote any host containing them.
	allowHostWords = []string{"museums", "historical"}
)

// Searcher runs cached web searches.
type Searcher struct {
	baseURL string
	fetcher *fetch.Client
	store   cache.Store
}

// NewSearcher creates a Searcher for the endpoint at baseURL.
func NewSearcher(baseURL string, fetcher *fetch.Client, store cache.Store) *Searcher {
	if baseURL == "" {
		baseURL = SearchURL
	}
	return &Searcher{baseURL: baseURL, fetcher: fetcher, store: store}
}

// Search returns up to MaxResults ranked result URLs for query. Failed
// searches are logged and cached as empty; the error is non-nil only when
// ctx is done.
func (s *Searcher) Search(ctx context.Context, query string) ([]string, error) {
	key := cache.Key("search", query)
	if urls, ok := cache.Load[[]string](s.store, cache.BucketSearch, key); ok {
		return urls, nil
	}

	params := url.Values{}
	params.Set("q", query)
	header := http.Header{}
	header.Set("Accept", "text/html")

	urls := []string{}
	body, err := s.fetcher.Get(ctx, s.baseURL+"?"+params.Encode(), header)
	if err == nil {
		var links []string
		links, err = ParseResults(body)
		urls = Rank(links, MaxResults)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Web search failed", logger.Fields{
			"query": query,
			"error": err.Error(),
		})
		urls = []string{}
	}

	cache.Save(s.store, cache.BucketSearch, key, urls)
	return urls, nil
}

// ParseResults extracts the target URLs of a DuckDuckGo result page in
// page order.
func ParseResults(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var links []string
	doc.Find("a.result__a").Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if target := resultTarget(href); target != "" {
			links = append(links, target)
		}
	})
	return links, nil
}

// resultTarget unwraps DuckDuckGo's /l/?uddg= redirect links.
func resultTarget(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		u, err = url.Parse(target)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// Rank drops blocked links, keeps the first max of the rest and moves
// allowlisted links to the front, preserving relative order otherwise.
func Rank(links []string, max int) []string {
	var promoted, rest []string
	for _, link := range links {
		if len(promoted)+len(rest) >= max {
			break
		}
		host := hostOf(link)
		if host == "" || blocked(host) {
			continue
		}
		if allowed(host) {
			promoted = append(promoted, link)
		} else {
			rest = append(rest, link)
		}
	}
	return append(promoted, rest...)
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(u.Host, "."))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// registrable returns the eTLD+1 of host, or host itself when it has none.
func registrable(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

func blocked(host string) bool {
	d := registrable(host)
	for _, b := range Blocklist {
		if d == b {
			return true
		}
	}
	return false
}

func allowed(host string) bool {
	d := registrable(host)
	for _, a := range Allowlist {
		if d == a {
			return true
		}
	}
	for _, w := range allowHostWords {
		if strings.Contains(host, w) {
			return true
		}
	}
	return false
}
