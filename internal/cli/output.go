package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/resolve"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// RunOutput describes a finished resolve run
type RunOutput struct {
	RunID        string           `json:"run_id"`
	CompletedAt  time.Time        `json:"completed_at"`
	Input        string           `json:"input"`
	Output       string           `json:"output"`
	MergedOutput string           `json:"merged_output"`
	Backup       string           `json:"backup,omitempty"`
	Records      int              `json:"records"`
	Replayed     int              `json:"replayed"`
	Resolved     int              `json:"resolved"`
	Skipped      int              `json:"skipped"`
	Duration     string           `json:"duration"`
	Interrupted  bool             `json:"interrupted,omitempty"`
	Summary      resolve.Summary  `json:"summary"`
	Metrics      *logger.Snapshot `json:"metrics,omitempty"`
}

// ExtractOutput is what extract reports for one description
type ExtractOutput struct {
	Description string   `json:"description"`
	Candidates  []string `json:"candidates"`
	First       string   `json:"first,omitempty"`
	Locations   []string `json:"locations"`
	Date        string   `json:"date"`
	Source      string   `json:"source"`
	Confidence  string   `json:"confidence"`
}

// BucketStatus describes one cache bucket on disk
type BucketStatus struct {
	Name     string    `json:"name"`
	File     string    `json:"file"`
	Entries  int       `json:"entries"`
	Bytes    int64     `json:"bytes"`
	Modified time.Time `json:"modified,omitempty"`
}

// StatusOutput describes the cache directory
type StatusOutput struct {
	CacheDir  string         `json:"cache_dir"`
	Processed int            `json:"processed"`
	Buckets   []BucketStatus `json:"buckets"`
}

// WriteRunOutput writes a run report in the specified format
func WriteRunOutput(w io.Writer, out *RunOutput, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
		return writeRunText(w, out, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteExtractOutput writes an extract report in the specified format
func WriteExtractOutput(w io.Writer, out *ExtractOutput, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
		return writeExtractText(w, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteStatusOutput writes a cache status report in the specified format
func WriteStatusOutput(w io.Writer, out *StatusOutput, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
		return writeStatusText(w, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeRunText(w io.Writer, out *RunOutput, verbose bool) error {
	s := out.Summary
	if out.Interrupted {
		fmt.Fprintln(w, "Run interrupted; partial results written.")
	}
	fmt.Fprintln(w, "Processing summary:")
	fmt.Fprintf(w, "  Total entries: %d\n", s.Total)
	fmt.Fprintf(w, "  Dates found: %d (%.2f%%)\n", s.Dated, s.DatedPercent)
	for _, c := range s.ByConfidence {
		fmt.Fprintf(w, "  %s confidence: %d (%.2f%%)\n", capitalize(c.Label), c.Count, c.Percent)
	}
	for _, c := range s.BySource {
		fmt.Fprintf(w, "  Source %s: %d (%.2f%%)\n", c.Label, c.Count, c.Percent)
	}
	if len(s.TopYears) > 0 {
		years := make([]string, 0, len(s.TopYears))
		for _, y := range s.TopYears {
			years = append(years, fmt.Sprintf("%d (%d)", y.Year, y.Count))
		}
		fmt.Fprintf(w, "  Most common years: %s\n", strings.Join(years, ", "))
	}
	if undated := s.Total - s.Dated; undated > 0 {
		fmt.Fprintf(w, "  Default date added to %d entries\n", undated)
	}

	fmt.Fprintf(w, "\nProcessed %d records in %s (%d resolved, %d from cache", out.Records, out.Duration, out.Resolved, out.Replayed)
	if out.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", out.Skipped)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "Results saved to %s\n", out.Output)
	fmt.Fprintf(w, "Merged dataset saved to %s\n", out.MergedOutput)
	if out.Backup != "" {
		fmt.Fprintf(w, "Backup saved to %s\n", out.Backup)
	}

	if verbose {
		fmt.Fprintf(w, "\nRun ID: %s\n", out.RunID)
		if out.Metrics != nil {
			writeMetricsText(w, out.Metrics)
		}
	}
	return nil
}

func writeMetricsText(w io.Writer, snap *logger.Snapshot) {
	names := snap.CounterNames()
	if len(names) > 0 {
		fmt.Fprintln(w, "Counters:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, snap.Counters[name])
		}
	}
	if t, ok := snap.Timings["resolve.run"]; ok {
		fmt.Fprintf(w, "Run time: %s\n", t.Total)
	}
}

func writeExtractText(w io.Writer, out *ExtractOutput) error {
	if len(out.Candidates) == 0 {
		fmt.Fprintln(w, "Candidates: none")
	} else {
		fmt.Fprintf(w, "Candidates: %s\n", strings.Join(out.Candidates, ", "))
	}
	if out.First != "" {
		fmt.Fprintf(w, "First match: %s\n", out.First)
	}
	if len(out.Locations) > 0 {
		fmt.Fprintf(w, "Locations: %s\n", strings.Join(out.Locations, "; "))
	}
	fmt.Fprintf(w, "Resolution: %s (source: %s, confidence: %s)\n", out.Date, out.Source, out.Confidence)
	return nil
}

func writeStatusText(w io.Writer, out *StatusOutput) error {
	fmt.Fprintf(w, "Cache directory: %s\n", out.CacheDir)
	fmt.Fprintf(w, "Processed records: %d\n", out.Processed)
	for _, b := range out.Buckets {
		fmt.Fprintf(w, "  %-10s %6d entries", b.Name, b.Entries)
		if b.Bytes > 0 {
			fmt.Fprintf(w, "  %d bytes, updated %s", b.Bytes, b.Modified.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
