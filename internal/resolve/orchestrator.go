package resolve

import (
	"context"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/location"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/record"
)

// MaxLocations is how many ranked place names are looked up.
const MaxLocations = 3

// Resolver looks up a date for a place name. contextText is the record's
// description. A nil date means nothing was found; the error is reserved
// for cancellation.
type Resolver interface {
	Resolve(ctx context.Context, place, contextText string) (*dates.Date, error)
}

// Orchestrator resolves single records.
type Orchestrator struct {
	store     cache.Store
	extractor *dates.Extractor
	kb        Resolver
	web       Resolver
	cutoff    int
}

// NewOrchestrator creates an Orchestrator. kb and web may be nil, which
// skips that stage.
func NewOrchestrator(store cache.Store, extractor *dates.Extractor, kb, web Resolver) *Orchestrator {
	return &Orchestrator{
		store:     store,
		extractor: extractor,
		kb:        kb,
		web:       web,
		cutoff:    dates.DefaultCutoffYear,
	}
}

// Cached returns the stored resolution of a processed record.
func (o *Orchestrator) Cached(id string) (record.Resolution, bool) {
	if !o.store.IsProcessed(id) {
		return record.Resolution{}, false
	}
	return cache.Load[record.Resolution](o.store, cache.BucketResults, id)
}

// Resolve returns the resolution of rec, replaying a cached one when the
// record was already processed. New outcomes are cached, the id marked
// processed and the store given a chance to flush. On cancellation the
// error is returned and nothing is recorded.
func (o *Orchestrator) Resolve(ctx context.Context, rec record.Record) (record.Resolution, error) {
	if res, ok := o.Cached(rec.ID); ok {
		logger.IncrCounter("resolve.replayed")
		return res, nil
	}

	res, err := o.ResolveText(ctx, rec.Description)
	if err != nil {
		return record.Resolution{}, err
	}

	cache.Save(o.store, cache.BucketResults, rec.ID, res)
	o.store.MarkProcessed(rec.ID)
	if err := o.store.Flush(false); err != nil {
		logger.Error("Cache flush failed", logger.Fields{"id": rec.ID}, err)
	}
	logger.IncrCounter("resolve.source." + res.Source.String())
	return res, nil
}

// ResolveText runs the resolution stages on a description without
// touching the results cache.
func (o *Orchestrator) ResolveText(ctx context.Context, description string) (record.Resolution, error) {
	text := dates.Normalize(description)

	if d, ok := o.extractor.Select(o.extractor.Candidates(text), o.cutoff); ok {
		return record.Resolved(d, record.SourceDescription, record.ConfidenceHigh), nil
	}
	if d, ok := o.extractor.Generic(text); ok {
		return record.Resolved(d, record.SourceDescription, record.ConfidenceMedium), nil
	}

	places := location.Extract(text)
	if len(places) == 0 {
		return record.NotFound(), nil
	}
	if len(places) > MaxLocations {
		places = places[:MaxLocations]
	}

	for i, place := range places {
		if o.kb != nil {
			d, err := o.kb.Resolve(ctx, place, text)
			if err != nil {
				return record.Resolution{}, err
			}
			if d != nil {
				return record.Resolved(*d, record.SourceKnowledgeBase, record.ConfidenceHigh), nil
			}
		}
		if i == 0 && o.web != nil {
			d, err := o.web.Resolve(ctx, place, text)
			if err != nil {
				return record.Resolution{}, err
			}
			if d != nil {
				return record.Resolved(*d, record.SourceWebSearch, record.ConfidenceMedium), nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return record.Resolution{}, err
	}
	return record.NotFound(), nil
}
