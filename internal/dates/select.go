package dates

// DefaultCutoffYear separates "historical" candidates from recent ones.
const DefaultCutoffYear = 2000

// Select picks the best historical date: the earliest candidate strictly
// before cutoffYear, or the earliest candidate overall when none is.
// Candidates outside (MinYear, currentYear] are ignored.
func Select(candidates []Date, cutoffYear, currentYear int) (Date, bool) {
	var (
		best, bestHistorical Date
		found, foundHist     bool
	)
	for _, d := range candidates {
		if d.Year <= MinYear || d.Year > currentYear {
			continue
		}
		if !found || d.Before(best) {
			best, found = d, true
		}
		if d.Year < cutoffYear && (!foundHist || d.Before(bestHistorical)) {
			bestHistorical, foundHist = d, true
		}
	}
	if foundHist {
		return bestHistorical, true
	}
	return best, found
}

// Select applies the package-level selection policy with the extractor's
// current year.
func (e *Extractor) Select(candidates []Date, cutoffYear int) (Date, bool) {
	return Select(candidates, cutoffYear, e.currentYear)
}
