package websearch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/fetch"
	"github.com/pfrederiksen/haunted-dates/internal/location"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

const (
	// MaxQueries bounds the searches issued per place.
	MaxQueries = 2
	// EnoughURLs stops querying once this many links are known.
	EnoughURLs = 3
	// MaxURLs caps the pages fetched per place.
	MaxURLs = 5
	// Workers is the size of the page fetch pool.
	Workers = 3
	// StopAfter is how many page dates end the fetching early.
	StopAfter = 2
)

type outcome struct {
	Date *dates.Date `json:"date"`
}

// Resolver finds a date for a place name by searching the web.
type Resolver struct {
	searcher  *Searcher
	dater     *PageDater
	store     cache.Store
	extractor *dates.Extractor
	workers   int
	stopAfter int
}

// NewResolver creates a Resolver.
func NewResolver(searcher *Searcher, dater *PageDater, store cache.Store, extractor *dates.Extractor) *Resolver {
	return &Resolver{
		searcher:  searcher,
		dater:     dater,
		store:     store,
		extractor: extractor,
		workers:   Workers,
		stopAfter: StopAfter,
	}
}

// Queries returns the searches tried for place, best first.
func Queries(place, state string) []string {
	queries := []string{
		place + " historical date built",
		place + " when founded history",
	}
	if state != "" {
		queries = append([]string{place + " history " + state}, queries...)
	}
	return queries[:MaxQueries]
}

// Resolve returns the selected date for place, or nil. The error is
// non-nil only when ctx was cancelled, in which case the per-place outcome
// is not cached.
func (r *Resolver) Resolve(ctx context.Context, place, contextText string) (*dates.Date, error) {
	state, _ := location.DetectState(contextText)
	key := cache.Key("location_google", place, state)
	if o, ok := cache.Load[outcome](r.store, cache.BucketSearch, key); ok {
		return o.Date, nil
	}

	var urls []string
	for _, q := range Queries(place, state) {
		found, err := r.searcher.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		urls = append(urls, found...)
		if len(urls) >= EnoughURLs {
			break
		}
	}
	urls = dedupe(urls, MaxURLs)

	found, err := r.fetchDates(ctx, urls)
	if err != nil {
		return nil, err
	}

	var result *dates.Date
	if d, ok := r.extractor.Select(found, dates.DefaultCutoffYear); ok {
		result = &d
		logger.IncrCounter("websearch.found")
	} else {
		logger.IncrCounter("websearch.not_found")
	}
	logger.Debug("Web search finished", logger.Fields{
		"location": place,
		"urls":     len(urls),
		"dates":    len(found),
	})

	cache.Save(r.store, cache.BucketSearch, key, outcome{Date: result})
	return result, nil
}

// fetchDates dates urls with a bounded pool. Once stopAfter dates are in,
// no new fetch starts and late results are dropped.
func (r *Resolver) fetchDates(ctx context.Context, urls []string) ([]dates.Date, error) {
	var (
		tok   fetch.Token
		mu    sync.Mutex
		found []dates.Date
		g     errgroup.Group
	)
	g.SetLimit(r.workers)

	for _, u := range urls {
		if tok.Cancelled() {
			break
		}
		u := u
		g.Go(func() error {
			if tok.Cancelled() {
				return nil
			}
			d, err := r.dater.Date(ctx, u)
			if err != nil || d == nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if tok.Cancelled() {
				logger.IncrCounter("websearch.discarded")
				return nil
			}
			found = append(found, *d)
			if len(found) >= r.stopAfter {
				tok.Cancel()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func dedupe(urls []string, max int) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == max {
			break
		}
	}
	return out
}
