package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/resolve"
	"github.com/pfrederiksen/haunted-dates/internal/tsv"
)

type resolveOptions struct {
	input           string
	output          string
	mergedOutput    string
	batchSize       int
	workers         int
	resume          bool
	reset           bool
	skipProblematic bool
	offline         bool
	noBackup        bool
	sort            string
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a date for every record of a dataset",
		Long: `Resolve reads a tab-separated dataset, resolves a date for each record
and writes the results, the dataset merged with the dates, and a
timestamped backup of the results. Interrupted runs resume from the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "Input TSV dataset")
	f.StringVar(&opts.output, "output", "", "Results TSV file")
	f.StringVar(&opts.mergedOutput, "merged-output", "", "Merged dataset TSV file (default <output>_merged.tsv)")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Records per batch")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent batch workers")
	f.BoolVar(&opts.resume, "resume", true, "Replay records processed by earlier runs")
	f.BoolVar(&opts.reset, "reset", false, "Delete the cache before running")
	f.BoolVar(&opts.skipProblematic, "skip-problematic", false, "Mark a small remainder of unprocessed records as skipped")
	f.BoolVar(&opts.offline, "offline", false, "Only date records from their descriptions")
	f.BoolVar(&opts.noBackup, "no-backup", false, "Do not write a timestamped backup of the results")
	f.StringVar(&opts.sort, "sort", string(SortByInput), "Result order: input, id, date or source")
	return cmd
}

func runResolve(cmd *cobra.Command, root *rootOptions, opts *resolveOptions) error {
	env, err := root.setup(cmd)
	if err != nil {
		return err
	}
	cfg := &env.cfg

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = opts.input
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("merged-output") {
		cfg.MergedOutput = opts.mergedOutput
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	order := SortOrder(strings.ToLower(opts.sort))
	if !order.valid() {
		return fmt.Errorf("invalid sort order: %s (must be input, id, date or source)", opts.sort)
	}
	if cfg.MergedOutput == "" {
		cfg.MergedOutput = tsv.MergedPath(cfg.Output)
	}

	store, err := env.openStore()
	if err != nil {
		return err
	}
	switch {
	case opts.reset:
		if err := store.Reset(); err != nil {
			return fmt.Errorf("resetting cache: %w", err)
		}
		env.log.Info("Cache reset", logger.Fields{"dir": store.Dir()})
	case !opts.resume:
		store.Forget()
		env.log.Info("Ignoring earlier progress; lookup caches kept", logger.Fields{"dir": store.Dir()})
	}

	table, err := tsv.Read(cfg.Input)
	if err != nil {
		return err
	}
	records, err := table.Records()
	if err != nil {
		return fmt.Errorf("preparing records: %w", err)
	}

	extractor := dates.NewExtractor(time.Now())
	driver := resolve.NewDriver(env.orchestrator(store, extractor, opts.offline), resolve.Options{
		BatchSize:    cfg.BatchSize,
		Workers:      cfg.Workers,
		FlushBatches: cfg.FlushBatches,
		Logger:       env.log,
	})

	skipped := 0
	if opts.skipProblematic {
		skipped, err = driver.SkipStuck(records, cfg.SkipThreshold)
		if err != nil {
			return err
		}
		if skipped > 0 {
			env.log.Info("Problematic entries marked as skipped", logger.Fields{"count": skipped})
		}
	}

	rep, runErr := driver.Run(cmd.Context(), records)
	if rep == nil {
		return runErr
	}

	results := append([]resolve.Result(nil), rep.Results...)
	sortResults(results, order)
	rows := (&resolve.Report{Results: results}).Rows(cfg.SentinelDate)

	out := &RunOutput{
		RunID:        env.runID,
		CompletedAt:  time.Now().UTC(),
		Input:        cfg.Input,
		Output:       cfg.Output,
		MergedOutput: cfg.MergedOutput,
		Records:      len(records),
		Replayed:     rep.Replayed,
		Resolved:     rep.Resolved,
		Skipped:      skipped,
		Duration:     rep.Duration.Round(time.Millisecond).String(),
		Interrupted:  runErr != nil,
		Summary:      resolve.Summarize(rep.Results),
	}

	var writeErrs []error
	if err := tsv.WriteRows(cfg.Output, rows); err != nil {
		writeErrs = append(writeErrs, err)
	} else {
		env.log.Info("Results saved", logger.Fields{"path": cfg.Output, "rows": len(rows)})
	}
	if err := tsv.Merge(table, rows, cfg.SentinelDate).Write(cfg.MergedOutput); err != nil {
		writeErrs = append(writeErrs, err)
	} else {
		env.log.Info("Merged dataset saved", logger.Fields{"path": cfg.MergedOutput})
	}
	if !opts.noBackup {
		out.Backup = tsv.BackupPath(cfg.Output, time.Now())
		if err := tsv.WriteRows(out.Backup, rows); err != nil {
			writeErrs = append(writeErrs, err)
		} else {
			env.log.Info("Backup saved", logger.Fields{"path": out.Backup})
		}
	}

	if root.verbose {
		snap := logger.GetMetricsSnapshot()
		out.Metrics = &snap
	}
	if err := WriteRunOutput(cmd.OutOrStdout(), out, env.format, root.verbose); err != nil {
		writeErrs = append(writeErrs, fmt.Errorf("writing output: %w", err))
	}

	if runErr != nil {
		return runErr
	}
	return errors.Join(writeErrs...)
}
