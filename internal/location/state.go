package location

import (
	"sort"
	"strings"
)

var states = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}

// statesBySpecificity lists multi-word names first so "West Virginia" is
// found before "Virginia".
var statesBySpecificity = func() []string {
	out := append([]string(nil), states...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Count(out[i], " ") > strings.Count(out[j], " ")
	})
	return out
}()

// DetectState returns the first US state name mentioned in text.
func DetectState(text string) (string, bool) {
	for _, s := range statesBySpecificity {
		if strings.Contains(text, s) {
			return s, true
		}
	}
	return "", false
}
