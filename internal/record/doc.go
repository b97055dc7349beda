// Package record defines the haunted-place Record and the Resolution
// produced for it.
//
// A Resolution carries an optional date, the Source stage that found it and
// a Confidence label. A dated Resolution is always high or medium
// confidence; an undated one is always low confidence and is backfilled
// with SentinelDate when rendered as a Row.
package record
