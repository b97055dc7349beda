// Package resolve runs the tiered date resolution for haunted-place
// records.
//
// An Orchestrator resolves one record: a date written in the description
// wins, then a generic parse of loose date-like text, then the knowledge
// base for the top ranked place names, then a web search for the single
// top ranked place. Every terminal outcome is stored in the results cache
// and the record id is marked processed, so repeated and resumed runs
// replay it without network access.
//
// A Driver resolves many records with a bounded pool of batch workers and
// checkpoints the cache as it goes.
package resolve
