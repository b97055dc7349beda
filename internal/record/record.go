package record

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/pfrederiksen/haunted-dates/internal/dates"
)

// SentinelDate is substituted for records whose date could not be resolved.
const SentinelDate = "2025/01/01"

// Record is one haunted-place row. It is never mutated after it is read.
type Record struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// New creates a Record. An empty id is replaced by a content hash of the
// description so every record stays addressable in the cache.
func New(id, description string, fields map[string]string) Record {
	id = strings.TrimSpace(id)
	if id == "" {
		id = GenerateID(description)
	}
	return Record{ID: id, Description: description, Fields: fields}
}

// GenerateID creates a deterministic id from the description text.
func GenerateID(description string) string {
	h := sha1.New()
	h.Write([]byte(strings.TrimSpace(description)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Field returns an original column value, or "" when absent.
func (r Record) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Row is the tabular output for one record.
type Row struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	ExtractedDate string `json:"extracted_date"`
	Source        string `json:"source"`
	Confidence    string `json:"confidence"`
}

// Row renders the resolution for output, substituting sentinel for a
// missing date. A not-found record backfilled this way is labelled
// "default"; skipped records keep their label.
func (r Resolution) Row(rec Record, sentinel string) Row {
	row := r.RawRow(rec)
	if r.Date == nil {
		row.ExtractedDate = sentinel
		if r.Source == SourceNotFound {
			row.Source = LabelDefault
		}
	}
	return row
}

// RawRow renders the resolution without backfilling, "null" standing in
// for a missing date.
func (r Resolution) RawRow(rec Record) Row {
	row := Row{
		ID:            rec.ID,
		Description:   rec.Description,
		ExtractedDate: "null",
		Source:        r.Source.String(),
		Confidence:    r.Confidence.String(),
	}
	if r.Date != nil {
		row.ExtractedDate = r.Date.String()
	}
	return row
}

// Year returns the resolved year, or 0 when there is no date.
func (r Resolution) Year() int {
	if r.Date == nil {
		return 0
	}
	return r.Date.Year
}

// Dated reports whether the resolution carries a date.
func (r Resolution) Dated() bool {
	return r.Date != nil
}

func datePtr(d dates.Date) *dates.Date {
	return &d
}
