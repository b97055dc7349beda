// Package cli implements the command-line interface for haunted-dates.
//
// The cli package provides the Cobra-based CLI with commands to resolve a
// dataset (resolve), try the pipeline on one description (extract), and
// inspect or clear the cache (status, reset). It wires configuration,
// logging, the cache store and the resolvers together, then writes results
// and a run summary as text or JSON.
package cli
