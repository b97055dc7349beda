// Package cache provides the durable key/value store behind the
// date-resolution pipeline.
//
// Four independent buckets hold encyclopedia lookups, search results,
// per-page dates and final per-record resolutions. Alongside them the store
// keeps the set of processed record ids, which is the resume checkpoint of
// a batch run. Entries are never invalidated automatically; only Reset
// clears them, so cached negative results persist until then.
//
// The File store keeps each bucket as a gob blob and the processed ids as
// progress.json, all in one directory. The Memory store is used in tests.
package cache
