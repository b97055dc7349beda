package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/record"
)

const (
	DefaultBatchSize    = 10
	DefaultWorkers      = 4
	DefaultFlushBatches = 10
	// DefaultSkipThreshold bounds how many stuck records SkipStuck gives up on.
	DefaultSkipThreshold = 50
)

// Result pairs a record with its resolution.
type Result struct {
	Record     record.Record
	Resolution record.Resolution
}

// Row renders the result for output.
func (r Result) Row(sentinel string) record.Row {
	return r.Resolution.Row(r.Record, sentinel)
}

// Report describes one driver run.
type Report struct {
	// Results holds every record that has a resolution, in input order.
	Results  []Result
	Replayed int
	Resolved int
	Batches  int
	Duration time.Duration
}

// Rows renders all results with missing dates backfilled by sentinel.
func (r *Report) Rows(sentinel string) []record.Row {
	rows := make([]record.Row, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, res.Row(sentinel))
	}
	return rows
}

// Options tunes a Driver. Zero values select the defaults.
type Options struct {
	BatchSize    int
	Workers      int
	FlushBatches int
	Logger       *logger.Logger
}

// Driver resolves record sets in parallel batches.
type Driver struct {
	orch  *Orchestrator
	store cache.Store
	opts  Options
	log   *logger.Logger
}

// NewDriver creates a Driver around orch and the store it writes to.
func NewDriver(orch *Orchestrator, opts Options) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.FlushBatches <= 0 {
		opts.FlushBatches = DefaultFlushBatches
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Driver{orch: orch, store: orch.store, opts: opts, log: log}
}

// panicError carries a worker panic back to Run.
type panicError struct {
	value interface{}
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic in batch worker: %v", p.value)
}

// Run resolves records. Processed records are replayed from the cache; the
// rest are sorted by description length, split into batches and resolved
// by a bounded pool of workers. The cache is force-flushed every
// FlushBatches completed batches and always before Run returns, including
// on cancellation and on a worker panic, which is re-raised afterwards.
//
// On cancellation the partial report is returned with ctx's error.
func (d *Driver) Run(ctx context.Context, records []record.Record) (*Report, error) {
	start := time.Now()
	rep := &Report{}
	resolutions := make([]*record.Resolution, len(records))

	var pending []int
	for i, rec := range records {
		if res, ok := d.orch.Cached(rec.ID); ok {
			resolutions[i] = &res
			rep.Replayed++
			continue
		}
		pending = append(pending, i)
	}
	sort.SliceStable(pending, func(a, b int) bool {
		return len(records[pending[a]].Description) < len(records[pending[b]].Description)
	})

	batches := partition(pending, d.opts.BatchSize)
	rep.Batches = len(batches)
	d.log.Info("Starting resolution run", logger.Fields{
		"records":    len(records),
		"replayed":   rep.Replayed,
		"unresolved": len(pending),
		"batches":    len(batches),
		"workers":    d.opts.Workers,
	})

	var (
		mu        sync.Mutex
		completed int
		resolved  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for bi, batch := range batches {
		if gctx.Err() != nil {
			break
		}
		bi, batch := bi, batch
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &panicError{value: r}
				}
			}()

			for _, idx := range batch {
				res, err := d.orch.Resolve(gctx, records[idx])
				if err != nil {
					return err
				}
				mu.Lock()
				resolutions[idx] = &res
				resolved++
				mu.Unlock()

				d.log.Debug("Processed record", logger.Fields{
					"id":         records[idx].ID,
					"dated":      res.Dated(),
					"source":     res.Source.String(),
					"confidence": res.Confidence.String(),
				})
			}

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()

			d.log.Info("Completed batch", logger.Fields{
				"batch":     bi,
				"completed": n,
				"total":     len(batches),
				"percent":   fmt.Sprintf("%.1f", float64(n)*100/float64(len(batches))),
			})
			if n%d.opts.FlushBatches == 0 {
				if err := d.store.Flush(true); err != nil {
					d.log.Error("Checkpoint flush failed", logger.Fields{"completed": n}, err)
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if err := d.store.Flush(true); err != nil {
		d.log.Error("Final cache flush failed", nil, err)
	}

	for i, res := range resolutions {
		if res != nil {
			rep.Results = append(rep.Results, Result{Record: records[i], Resolution: *res})
		}
	}
	rep.Resolved = resolved
	rep.Duration = time.Since(start)
	logger.RecordTiming("resolve.run", rep.Duration)

	if pe, ok := runErr.(*panicError); ok {
		d.log.Error("Batch worker panicked; progress saved", nil, pe)
		panic(pe.value)
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		d.log.Warn("Run interrupted; progress saved", logger.Fields{
			"resolved": rep.Resolved,
			"error":    runErr.Error(),
		})
		return rep, runErr
	}

	d.log.Info("Resolution run finished", logger.Fields{
		"resolved": rep.Resolved,
		"replayed": rep.Replayed,
		"duration": rep.Duration.String(),
	})
	return rep, nil
}

// SkipStuck marks every unprocessed record as skipped when fewer than
// threshold remain, so a run that keeps failing on a few records can
// finish. It returns how many records were skipped.
func (d *Driver) SkipStuck(records []record.Record, threshold int) (int, error) {
	var stuck []record.Record
	for _, rec := range records {
		if !d.store.IsProcessed(rec.ID) {
			stuck = append(stuck, rec)
		}
	}
	if len(stuck) == 0 || len(stuck) >= threshold {
		return 0, nil
	}

	for _, rec := range stuck {
		d.log.Warn("Marking stuck record as skipped", logger.Fields{"id": rec.ID})
		cache.Save(d.store, cache.BucketResults, rec.ID, record.Skipped())
		d.store.MarkProcessed(rec.ID)
	}
	if err := d.store.Flush(true); err != nil {
		return len(stuck), fmt.Errorf("flushing skipped records: %w", err)
	}
	return len(stuck), nil
}

func partition(idx []int, size int) [][]int {
	var batches [][]int
	for len(idx) > 0 {
		n := size
		if n > len(idx) {
			n = len(idx)
		}
		batches = append(batches, idx[:n])
		idx = idx[n:]
	}
	return batches
}
