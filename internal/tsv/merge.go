package tsv

import (
	"strconv"
	"strings"

	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/record"
)

// Columns appended by Merge.
const (
	ColumnEvidenceDate   = "evidence_date"
	ColumnDateSource     = "date_source"
	ColumnDateConfidence = "date_confidence"
)

// Fill values for rows Merge finds no result for.
const (
	SourceNotProcessed = "not_processed"
	ConfidenceNone     = "none"
)

// Join names how Merge matched results to rows.
type Join string

const (
	JoinID        Join = "id"
	JoinIndex     Join = "index"
	JoinComposite Join = "composite"
)

// MergeReport describes a merge.
type MergeReport struct {
	Join      Join
	Matched   int
	Collision int
}

// Merge returns a copy of t with the evidence_date, date_source and
// date_confidence columns set from rows. Rows are matched by the id column
// when t has one, by row index when every result id is an index into t, and
// otherwise by a location|city key derived from the result description.
//
// The composite key is lossy: results sharing a key overwrite each other
// and the last one wins. Such collisions are counted and logged.
// Unmatched rows get sentinel, not_processed and none.
func Merge(t *Table, rows []record.Row, sentinel string) *Table {
	merged, rep := merge(t, rows, sentinel)
	fields := logger.Fields{"join": string(rep.Join), "matched": rep.Matched, "rows": len(t.Rows)}
	if rep.Collision > 0 {
		fields["collisions"] = rep.Collision
		logger.Warn("Composite merge keys collided; later results overwrote earlier ones", fields)
	} else {
		logger.Info("Merged results into dataset", fields)
	}
	return merged
}

func merge(t *Table, rows []record.Row, sentinel string) (*Table, MergeReport) {
	out := &Table{Header: append([]string(nil), t.Header...)}
	cols := make([]int, 3)
	for i, name := range []string{ColumnEvidenceDate, ColumnDateSource, ColumnDateConfidence} {
		c := out.Column(name)
		if c < 0 {
			out.Header = append(out.Header, name)
			c = len(out.Header) - 1
		}
		cols[i] = c
	}

	rowFor, rep := matcher(t, rows)
	for i, src := range t.Rows {
		row := make([]string, len(out.Header))
		copy(row, src)
		row[cols[0]], row[cols[1]], row[cols[2]] = sentinel, SourceNotProcessed, ConfidenceNone
		if r, ok := rowFor(i); ok {
			row[cols[0]], row[cols[1]], row[cols[2]] = r.ExtractedDate, r.Source, r.Confidence
			rep.Matched++
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rep
}

// matcher picks the join strategy and returns a lookup from table row
// index to result.
func matcher(t *Table, rows []record.Row) (func(int) (record.Row, bool), MergeReport) {
	if c := t.Column(ColumnID); c >= 0 {
		byID := make(map[string]record.Row, len(rows))
		for _, r := range rows {
			byID[r.ID] = r
		}
		return func(i int) (record.Row, bool) {
			r, ok := byID[strings.TrimSpace(t.Rows[i][c])]
			return r, ok
		}, MergeReport{Join: JoinID}
	}

	if byIndex, ok := indexJoin(rows, len(t.Rows)); ok {
		return func(i int) (record.Row, bool) {
			r, ok := byIndex[i]
			return r, ok
		}, MergeReport{Join: JoinIndex}
	}

	rep := MergeReport{Join: JoinComposite}
	byKey := make(map[string]record.Row, len(rows))
	for _, r := range rows {
		k := descriptionKey(r.Description)
		if k == "" {
			continue
		}
		if _, dup := byKey[k]; dup {
			rep.Collision++
		}
		byKey[k] = r
	}
	return func(i int) (record.Row, bool) {
		r, ok := byKey[t.Value(i, "location")+"|"+t.Value(i, "city")]
		return r, ok
	}, rep
}

// indexJoin maps result ids to row indices when every id is a non-negative
// integer and the largest one is the last row of the table.
func indexJoin(rows []record.Row, n int) (map[int]record.Row, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	byIndex := make(map[int]record.Row, len(rows))
	last := -1
	for _, r := range rows {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 {
			return nil, false
		}
		if i > last {
			last = i
		}
		byIndex[i] = r
	}
	if last+1 != n {
		return nil, false
	}
	return byIndex, true
}

// descriptionKey derives location|city from a description of the form
// "Location, City, ...". Descriptions without a comma have no key.
func descriptionKey(desc string) string {
	parts := strings.Split(desc, ",")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "|" + strings.TrimSpace(parts[1])
}
