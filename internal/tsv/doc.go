// Package tsv reads the haunted-places dataset and writes resolution
// results back out as tab-separated files.
//
// A Table keeps the input exactly as read so Merge can append the date
// columns to the original rows. Records turns a Table into pipeline
// records, synthesizing ids and picking a description column when the
// dataset lacks them.
package tsv
