// Package wiki looks up founding dates in an online encyclopedia through
// the MediaWiki action API.
//
// The Client performs title searches and fetches plain-text page extracts.
// The Resolver turns a location name into a date: it searches a few
// geographically qualified variants of the name, takes the top hit, and
// scans the article's sections in priority order until one yields a date
// candidate. Every search, page and per-location outcome is cached,
// including negative ones.
package wiki
