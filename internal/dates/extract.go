package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// MinYear is the exclusive lower bound for any extracted year.
const MinYear = 1500

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|` +
	`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`

// rule is one regular expression of a pattern family together with the
// function that turns its submatches into a Date.
type rule struct {
	re    *regexp.Regexp
	build func(m []string) (Date, bool)
}

// family groups rules of equal priority. Families are tried in slice order.
type family struct {
	name  string
	rules []rule
}

var families = []family{
	{
		name: "iso",
		rules: []rule{{
			re: regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
			build: func(m []string) (Date, bool) {
				return NewDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), PrecisionDay)
			},
		}},
	},
	{
		name: "month-day-year",
		rules: []rule{
			{
				re: regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
				build: func(m []string) (Date, bool) {
					return NewDate(atoi(m[3]), monthNumber(m[1]), atoi(m[2]), PrecisionDay)
				},
			},
			{
				re: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\.?,?\s+(\d{4})\b`),
				build: func(m []string) (Date, bool) {
					return NewDate(atoi(m[3]), monthNumber(m[2]), atoi(m[1]), PrecisionDay)
				},
			},
		},
	},
	{
		name: "month-year",
		rules: []rule{{
			re: regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?,?\s+(\d{4})\b`),
			build: func(m []string) (Date, bool) {
				return NewDate(atoi(m[2]), monthNumber(m[1]), 1, PrecisionMonth)
			},
		}},
	},
	{
		name: "numeric",
		rules: []rule{{
			re:    regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`),
			build: dualOrder,
		}},
	},
	{
		name: "dotted",
		rules: []rule{{
			re:    regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`),
			build: dualOrder,
		}},
	},
	{
		name: "approximate",
		rules: []rule{{
			re: regexp.MustCompile(`(?i)(?:\b(?:circa|around|about)|\bc\.)\s*(\d{4})\b`),
			build: func(m []string) (Date, bool) {
				return YearOnly(atoi(m[1])), true
			},
		}},
	},
	{
		name: "decade",
		rules: []rule{{
			re:    regexp.MustCompile(`(?i)\b(early|mid|late)[\s-]+(\d{2})'?s\b`),
			build: decadePhrase,
		}},
	},
	{
		name: "since",
		rules: []rule{{
			re: regexp.MustCompile(`(?i)\bsince\s+(\d{4})\b`),
			build: func(m []string) (Date, bool) {
				return YearOnly(atoi(m[1])), true
			},
		}},
	},
	{
		name: "range",
		rules: []rule{{
			re: regexp.MustCompile(`(?i)\b(\d{4})s?(?:\s*[-–—]\s*|\s+to\s+)(\d{4})s?\b`),
			build: func(m []string) (Date, bool) {
				return YearOnly(atoi(m[1])), true
			},
		}},
	},
	{
		name: "year",
		rules: []rule{{
			re: regexp.MustCompile(`\b(18\d{2}|19\d{2}|20\d{2})\b`),
			build: func(m []string) (Date, bool) {
				return YearOnly(atoi(m[1])), true
			},
		}},
	},
}

var (
	updateNotePattern = regexp.MustCompile(`(?i)March \d{4} Update|February \d{4} Correction`)

	// Spans handed to the generic parser: two-digit-year numeric dates and
	// ISO timestamps, neither of which any family accepts.
	genericSpans = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2}\b`),
	}
)

// Extractor finds candidate dates in free text.
type Extractor struct {
	currentYear int
}

// NewExtractor creates an Extractor that rejects years at or after now's year.
func NewExtractor(now time.Time) *Extractor {
	return &Extractor{currentYear: now.Year()}
}

// CurrentYear returns the exclusive upper bound used for candidate years.
func (e *Extractor) CurrentYear() int {
	return e.currentYear
}

// Normalize removes editorial notes ("March 2019 Update") and expands the
// contractions that otherwise confuse phrase matching.
func Normalize(text string) string {
	text = updateNotePattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "wasn't", "was not")
	text = strings.ReplaceAll(text, "didn't", "did not")
	return text
}

// Candidates returns every date found in text, ordered by pattern family
// priority and then by position.
func (e *Extractor) Candidates(text string) []Date {
	return e.scan(text, false)
}

// First returns the first date of the highest-priority family that matches.
func (e *Extractor) First(text string) (Date, bool) {
	found := e.scan(text, true)
	if len(found) == 0 {
		return Date{}, false
	}
	return found[0], true
}

// Generic is the fallback parser used when no pattern family matched. It
// feeds loose date-like spans to a general purpose date parser.
func (e *Extractor) Generic(text string) (Date, bool) {
	for _, re := range genericSpans {
		for _, span := range re.FindAllString(text, -1) {
			t, err := dateparse.ParseIn(span, time.UTC)
			if err != nil {
				continue
			}
			d, ok := NewDate(t.Year(), int(t.Month()), t.Day(), PrecisionDay)
			if ok && e.inRange(d.Year) {
				return d, true
			}
		}
	}
	return Date{}, false
}

func (e *Extractor) scan(text string, firstOnly bool) []Date {
	masked := []byte(text)
	var found []Date

	for _, fam := range families {
		for _, r := range fam.rules {
			for _, loc := range r.re.FindAllSubmatchIndex(masked, -1) {
				m := submatches(masked, loc)
				d, ok := r.build(m)
				if !ok || !e.inRange(d.Year) {
					continue
				}
				found = append(found, d)
				if firstOnly {
					return found
				}
				for i := loc[0]; i < loc[1]; i++ {
					masked[i] = ' '
				}
			}
		}
	}
	return found
}

func (e *Extractor) inRange(year int) bool {
	return year > MinYear && year < e.currentYear
}

func submatches(b []byte, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = string(b[loc[2*i]:loc[2*i+1]])
		}
	}
	return m
}

// dualOrder reads a numeric date as month-first and falls back to day-first.
func dualOrder(m []string) (Date, bool) {
	a, b, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if d, ok := NewDate(year, a, b, PrecisionDay); ok {
		return d, true
	}
	return NewDate(year, b, a, PrecisionDay)
}

// decadePhrase maps "Early 20s" style phrases onto a representative month.
// Two-digit decades below 25 belong to the 2000s, the rest to the 1900s.
func decadePhrase(m []string) (Date, bool) {
	decade := atoi(m[2])
	year := 1900 + decade
	if decade < 25 {
		year = 2000 + decade
	}
	month := 1
	switch strings.ToLower(m[1]) {
	case "early":
		month = 2
	case "mid":
		month = 6
	case "late":
		month = 10
	}
	return NewDate(year, month, 1, PrecisionMonth)
}

func monthNumber(name string) int {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	switch name[:3] {
	case "jan":
		return 1
	case "feb":
		return 2
	case "mar":
		return 3
	case "apr":
		return 4
	case "may":
		return 5
	case "jun":
		return 6
	case "jul":
		return 7
	case "aug":
		return 8
	case "sep":
		return 9
	case "oct":
		return 10
	case "nov":
		return 11
	case "dec":
		return 12
	}
	return 0
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
