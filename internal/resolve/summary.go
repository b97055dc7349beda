package resolve

import (
	"sort"

	"github.com/pfrederiksen/haunted-dates/internal/record"
)

// TopYearCount is how many of the most common years a Summary lists.
const TopYearCount = 10

// Count is one labelled tally with its share of the total.
type Count struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// YearCount is how many results resolved to one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Total        int         `json:"total"`
	Dated        int         `json:"dated"`
	DatedPercent float64     `json:"dated_percent"`
	ByConfidence []Count     `json:"by_confidence"`
	BySource     []Count     `json:"by_source"`
	TopYears     []YearCount `json:"top_years"`
}

// Summarize tallies results by confidence, by source and by year.
// Confidences and sources are listed in their canonical order, years by
// descending count with ties broken by the earlier year.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}

	confidences := make(map[record.Confidence]int)
	sources := make(map[record.Source]int)
	years := make(map[int]int)
	for _, r := range results {
		confidences[r.Resolution.Confidence]++
		sources[r.Resolution.Source]++
		if r.Resolution.Dated() {
			s.Dated++
			years[r.Resolution.Year()]++
		}
	}
	s.DatedPercent = percent(s.Dated, s.Total)

	for _, c := range record.Confidences {
		s.ByConfidence = append(s.ByConfidence, Count{
			Label:   c.String(),
			Count:   confidences[c],
			Percent: percent(confidences[c], s.Total),
		})
	}
	for _, src := range record.Sources {
		s.BySource = append(s.BySource, Count{
			Label:   src.String(),
			Count:   sources[src],
			Percent: percent(sources[src], s.Total),
		})
	}

	for year, n := range years {
		s.TopYears = append(s.TopYears, YearCount{Year: year, Count: n})
	}
	sort.Slice(s.TopYears, func(i, j int) bool {
		if s.TopYears[i].Count != s.TopYears[j].Count {
			return s.TopYears[i].Count > s.TopYears[j].Count
		}
		return s.TopYears[i].Year < s.TopYears[j].Year
	})
	if len(s.TopYears) > TopYearCount {
		s.TopYears = s.TopYears[:TopYearCount]
	}
	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
