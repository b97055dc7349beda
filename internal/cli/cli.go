package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/config"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/fetch"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/resolve"
	"github.com/pfrederiksen/haunted-dates/internal/websearch"
	"github.com/pfrederiksen/haunted-dates/internal/wiki"
)

const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitInterrupted = 130
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	cacheDir   string
	logLevel   string
	format     string
	verbose    bool
}

// runEnv is what a command needs after flags and config are resolved.
type runEnv struct {
	cfg    config.Config
	log    *logger.Logger
	format OutputFormat
	runID  string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "haunted-dates",
		Short: "Resolve founding and incident dates for haunted places",
		Long: `A CLI tool that resolves a historical date for every record of the
haunted-places dataset. Dates come from the description itself, then from
Wikipedia, then from a web search. Lookups are cached and runs resume
where they stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (or env: "+config.EnvConfig+")")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "Cache directory (or env: "+config.EnvCacheDir+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (or env: "+config.EnvLogLevel+")")
	pf.StringVar(&opts.format, "format", "text", "Output format: text or json")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging and print run metrics")

	cmd.AddCommand(
		newResolveCmd(opts),
		newExtractCmd(opts),
		newResetCmd(opts),
		newStatusCmd(opts),
	)
	return cmd
}

// setup loads configuration, applies the shared flags and installs the
// run logger as the package default.
func (o *rootOptions) setup(cmd *cobra.Command) (*runEnv, error) {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.cacheDir != "" {
		cfg.CacheDir = o.cacheDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	runID := uuid.NewString()
	log := logger.New(logger.ParseLevel(cfg.LogLevel), cmd.ErrOrStderr()).With(logger.Fields{
		"run_id":  runID,
		"command": cmd.Name(),
	})
	logger.SetDefault(log)
	logger.DefaultMetrics().Reset()

	return &runEnv{cfg: cfg, log: log, format: format, runID: runID}, nil
}

// openStore opens the file store named by the configuration.
func (e *runEnv) openStore() (*cache.File, error) {
	store, err := cache.Open(e.cfg.CacheDir, e.cfg.FlushEvery)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

// orchestrator wires the resolution stages. Offline leaves out every stage
// that needs the network.
func (e *runEnv) orchestrator(store cache.Store, extractor *dates.Extractor, offline bool) *resolve.Orchestrator {
	if offline {
		return resolve.NewOrchestrator(store, extractor, nil, nil)
	}

	wikiClient := wiki.NewClient(e.cfg.Wikipedia.URL, fetch.New(e.cfg.Wikipedia.Options()))
	kb := wiki.NewResolver(wikiClient, store, extractor)

	searcher := websearch.NewSearcher(e.cfg.Search.URL, fetch.New(e.cfg.Search.Options()), store)
	dater := websearch.NewPageDater(e.pageClient(), store, extractor)
	web := websearch.NewResolver(searcher, dater, store, extractor)

	return resolve.NewOrchestrator(store, extractor, kb, web)
}

// pageClient fetches search result pages with the pages endpoint's delay.
func (e *runEnv) pageClient() *fetch.Client {
	return fetch.New(e.cfg.Pages.Options())
}

// Execute runs the CLI
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			os.Exit(ExitInterrupted)
		}
		os.Exit(ExitError)
	}
}
