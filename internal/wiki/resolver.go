package wiki

import (
	"context"
	"errors"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/location"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

// Sections are scanned in this order; the first one with a candidate wins.
var (
	PrimarySections   = []string{"history", "founding", "establishment"}
	SecondarySections = []string{"background", "early history", "construction", "origins"}
)

// HeadLimit is how much of an article is scanned when no section matched.
const HeadLimit = 5000

type outcome struct {
	Date *dates.Date `json:"date"`
}

// Resolver finds a date for a place name in the encyclopedia.
type Resolver struct {
	client    *Client
	store     cache.Store
	extractor *dates.Extractor
	cutoff    int
}

// NewResolver creates a resolver backed by client and store.
func NewResolver(client *Client, store cache.Store, extractor *dates.Extractor) *Resolver {
	return &Resolver{
		client:    client,
		store:     store,
		extractor: extractor,
		cutoff:    dates.DefaultCutoffYear,
	}
}

// Variants returns the two search terms tried for place. A state found in
// the record's text qualifies the first one.
func Variants(place, state string) []string {
	if state != "" {
		return []string{place + ", " + state, place}
	}
	return []string{place, place + ", USA"}
}

// Resolve returns the selected date for place, or nil when the encyclopedia
// has none. The error is non-nil only when ctx was cancelled, in which
// case nothing is cached.
func (r *Resolver) Resolve(ctx context.Context, place, contextText string) (*dates.Date, error) {
	state, _ := location.DetectState(contextText)
	key := cache.Key("location", place, state)
	if o, ok := cache.Load[outcome](r.store, cache.BucketKnowledgeBase, key); ok {
		return o.Date, nil
	}

	variants := Variants(place, state)
	terms := append(variants[:2:2], variants[0]+" history")

	for _, term := range terms {
		d, err := r.tryTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		if d != nil {
			logger.Debug("Encyclopedia date found", logger.Fields{
				"location": place,
				"term":     term,
				"date":     d.String(),
			})
			logger.IncrCounter("wiki.found")
			cache.Save(r.store, cache.BucketKnowledgeBase, key, outcome{Date: d})
			return d, nil
		}
	}

	logger.IncrCounter("wiki.not_found")
	cache.Save(r.store, cache.BucketKnowledgeBase, key, outcome{})
	return nil, nil
}

func (r *Resolver) tryTerm(ctx context.Context, term string) (*dates.Date, error) {
	titles, err := r.search(ctx, term)
	if err != nil || len(titles) == 0 {
		return nil, err
	}
	page, err := r.page(ctx, titles[0])
	if err != nil || page == nil {
		return nil, err
	}

	candidates := r.Scan(page)
	if len(candidates) == 0 {
		return nil, nil
	}
	d, ok := r.extractor.Select(candidates, r.cutoff)
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Scan returns the candidates of the first part of page that has any:
// the primary sections, the secondary sections, the first paragraph, then
// the head of the article.
func (r *Resolver) Scan(page *Page) []dates.Date {
	for _, group := range [][]string{PrimarySections, SecondarySections} {
		for _, name := range group {
			text, ok := page.Section(name)
			if !ok {
				continue
			}
			if c := r.extractor.Candidates(text); len(c) > 0 {
				return c
			}
		}
	}
	if c := r.extractor.Candidates(page.FirstParagraph()); len(c) > 0 {
		return c
	}
	return r.extractor.Candidates(page.Head(HeadLimit))
}

func (r *Resolver) search(ctx context.Context, term string) ([]string, error) {
	key := cache.Key("wikipedia_search", term)
	if titles, ok := cache.Load[[]string](r.store, cache.BucketKnowledgeBase, key); ok {
		return titles, nil
	}

	titles, err := r.client.Search(ctx, term, 1)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Encyclopedia search failed", logger.Fields{
			"term":  term,
			"error": err.Error(),
		})
		titles = []string{}
	}
	cache.Save(r.store, cache.BucketKnowledgeBase, key, titles)
	return titles, nil
}

func (r *Resolver) page(ctx context.Context, title string) (*Page, error) {
	key := cache.Key("wikipedia_page", title)
	if p, ok := cache.Load[*Page](r.store, cache.BucketKnowledgeBase, key); ok {
		return p, nil
	}

	p, err := r.client.Page(ctx, title)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDisambiguation) {
			logger.Warn("Encyclopedia page fetch failed", logger.Fields{
				"title": title,
				"error": err.Error(),
			})
		}
		p = nil
	}
	cache.Save(r.store, cache.BucketKnowledgeBase, key, p)
	return p, nil
}
