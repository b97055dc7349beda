package cli

import (
	"sort"
	"strconv"

	"github.com/pfrederiksen/haunted-dates/internal/resolve"
)

// SortOrder represents the available orderings of the results file
type SortOrder string

const (
	SortByInput  SortOrder = "input"
	SortByID     SortOrder = "id"
	SortByDate   SortOrder = "date"
	SortBySource SortOrder = "source"
)

func (o SortOrder) valid() bool {
	switch o {
	case SortByInput, SortByID, SortByDate, SortBySource:
		return true
	}
	return false
}

// sortResults sorts results in place. Input order is left untouched.
func sortResults(results []resolve.Result, order SortOrder) {
	switch order {
	case SortByID:
		sort.SliceStable(results, func(i, j int) bool {
			return compareByID(results[i], results[j])
		})
	case SortByDate:
		sort.SliceStable(results, func(i, j int) bool {
			return compareByDate(results[i], results[j])
		})
	case SortBySource:
		sort.SliceStable(results, func(i, j int) bool {
			si, sj := results[i].Resolution.Source, results[j].Resolution.Source
			if si != sj {
				return si < sj
			}
			// If sources are equal, sort by date
			return compareByDate(results[i], results[j])
		})
	}
}

// compareByDate compares two results by their resolved date
// Returns true if result i should come before result j
func compareByDate(i, j resolve.Result) bool {
	dateI, dateJ := i.Resolution.Date, j.Resolution.Date

	// If both dates are present, compare them
	if dateI != nil && dateJ != nil {
		if *dateI != *dateJ {
			return dateI.Before(*dateJ)
		}
		return compareByID(i, j)
	}

	// If only one date is present, put it first
	if dateI != nil {
		return true
	}
	if dateJ != nil {
		return false
	}
	return compareByID(i, j)
}

// compareByID orders numeric ids numerically and everything else
// lexically, numeric ids first.
func compareByID(i, j resolve.Result) bool {
	ni, errI := strconv.Atoi(i.Record.ID)
	nj, errJ := strconv.Atoi(j.Record.ID)
	switch {
	case errI == nil && errJ == nil:
		return ni < nj
	case errI == nil:
		return true
	case errJ == nil:
		return false
	}
	return i.Record.ID < j.Record.ID
}
