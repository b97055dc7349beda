// Package fetch performs the outbound HTTP requests of the resolvers.
//
// A Client waits on a politeness Policy before every request, rotates its
// User-Agent header and retries transient failures with exponential
// backoff. A Token lets a group of tasks stop dispatching new work while
// in-flight requests finish.
package fetch
