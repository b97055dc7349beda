// Package dates extracts calendar-date candidates from free text and picks
// the most plausible historical one.
//
// Extraction applies a fixed, ordered list of pattern families (numeric ISO
// dates first, bare years last). Text claimed by a family is masked so that
// lower families never re-match inside it. Every candidate year must fall
// strictly between 1500 and the current year.
package dates
