// Package location pulls candidate place names out of haunted-place
// descriptions using capitalisation, position and quoting heuristics.
package location

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// MinLength is the shortest phrase accepted as a place name.
const MinLength = 3

// maxQuotedWords bounds quoted phrases; longer quotes are usually speech.
const maxQuotedWords = 5

var (
	sentenceSplit   = regexp.MustCompile(`[.!?]`)
	capitalized     = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)
	afterThe        = regexp.MustCompile(`\b(?:[Tt]he|THE)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)
	quoted          = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)
	functionalWords = map[string]struct{}{
		"I": {}, "The": {}, "A": {}, "An": {}, "In": {}, "On": {}, "At": {}, "By": {},
		"For": {}, "With": {}, "To": {}, "From": {}, "And": {}, "But": {}, "Or": {},
		"Not": {}, "He": {}, "She": {}, "It": {}, "They": {}, "We": {}, "You": {},
		"Who": {}, "What": {}, "Where": {}, "When": {}, "Why": {}, "How": {},
	}
)

// Extract returns deduplicated candidate locations, most promising first.
//
// Phrases from the first sentence come first, then "the X" phrases, then
// short quoted phrases, then any other capitalised phrase. The list is then
// stably sorted by how often each phrase occurs, so frequency decides and
// the priority order only breaks ties.
func Extract(text string) []string {
	firstSentence := text
	if parts := sentenceSplit.Split(text, 2); len(parts) > 0 {
		firstSentence = parts[0]
	}

	all := findPhrases(capitalized, text)
	counts := make(map[string]int, len(all))
	for _, p := range all {
		counts[p]++
	}

	priority := make([]string, 0, len(all))
	priority = append(priority, findPhrases(capitalized, firstSentence)...)
	priority = append(priority, findPhrases(afterThe, text)...)
	priority = append(priority, quotedPhrases(text)...)
	seen := make(map[string]struct{}, len(priority))
	for _, p := range priority {
		seen[p] = struct{}{}
	}
	for _, p := range all {
		if _, ok := seen[p]; !ok {
			priority = append(priority, p)
			seen[p] = struct{}{}
		}
	}

	sort.SliceStable(priority, func(i, j int) bool {
		return counts[priority[i]] > counts[priority[j]]
	})

	out := make([]string, 0, len(priority))
	emitted := make(map[string]struct{}, len(priority))
	for _, p := range priority {
		if len(p) < MinLength || isFunctionWord(p) {
			continue
		}
		if _, ok := emitted[p]; ok {
			continue
		}
		emitted[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func findPhrases(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, collapseSpace(m[1]))
	}
	return out
}

func quotedPhrases(text string) []string {
	var out []string
	for _, m := range quoted.FindAllStringSubmatch(text, -1) {
		q := m[1]
		if q == "" {
			q = m[2]
		}
		q = collapseSpace(q)
		if q == "" || len(strings.Fields(q)) > maxQuotedWords || !hasUpper(q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func isFunctionWord(p string) bool {
	_, ok := functionalWords[p]
	return ok
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
