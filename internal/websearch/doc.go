// Package websearch finds founding dates for a place on the open web.
//
// A Searcher runs queries against the DuckDuckGo HTML endpoint and ranks
// the result links: social and retail sites are dropped, historical and
// educational sites move to the front. A PageDater fetches one result page
// and reads a date from its most relevant text. The Resolver ties both
// together with a small pool of concurrent page fetches that stops
// dispatching once enough dates are known.
package websearch
