package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/location"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/record"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "extract [description]",
		Short: "Run the pipeline on a single description",
		Long: `Extract prints the date candidates found in a description, the first
match, the ranked place names and the resolution the pipeline settles on.
The description is read from the arguments, or from stdin when none are
given. Lookups go through the cache directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.setup(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading description: %w", err)
				}
				text = string(raw)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("a description is required")
			}

			var store cache.Store = cache.NewMemory()
			if !offline {
				f, err := env.openStore()
				if err != nil {
					return err
				}
				store = f
			}

			extractor := dates.NewExtractor(time.Now())
			res, err := env.orchestrator(store, extractor, offline).ResolveText(cmd.Context(), text)
			if err != nil {
				return err
			}
			if err := store.Flush(true); err != nil {
				env.log.Error("Cache flush failed", nil, err)
			}

			normalized := dates.Normalize(text)
			row := res.RawRow(record.Record{})
			out := &ExtractOutput{
				Description: text,
				Locations:   location.Extract(normalized),
				Date:        row.ExtractedDate,
				Source:      row.Source,
				Confidence:  row.Confidence,
			}
			for _, d := range extractor.Candidates(normalized) {
				out.Candidates = append(out.Candidates, d.String())
			}
			if d, ok := extractor.First(normalized); ok {
				out.First = d.String()
			}
			return WriteExtractOutput(cmd.OutOrStdout(), out, env.format)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the network resolvers and the cache directory")
	return cmd
}

func newResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every cache file and the resume checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.setup(cmd)
			if err != nil {
				return err
			}
			store, err := env.openStore()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return fmt.Errorf("resetting cache: %w", err)
			}
			env.log.Info("Cache reset", logger.Fields{"dir": store.Dir()})
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", store.Dir())
			return nil
		},
	}
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the processed-record count and cache sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.setup(cmd)
			if err != nil {
				return err
			}
			store, err := env.openStore()
			if err != nil {
				return err
			}

			out := &StatusOutput{
				CacheDir:  store.Dir(),
				Processed: len(store.Processed()),
			}
			for _, b := range cache.Buckets {
				bs := BucketStatus{Name: string(b), File: cache.BucketFile(b), Entries: store.Len(b)}
				if info, err := os.Stat(store.Path(b)); err == nil {
					bs.Bytes = info.Size()
					bs.Modified = info.ModTime().UTC()
				}
				out.Buckets = append(out.Buckets, bs)
			}
			return WriteStatusOutput(cmd.OutOrStdout(), out, env.format)
		},
	}
}
