package tsv

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/haunted-dates/internal/record"
)

func mustParse(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tbl
}

func TestParse(t *testing.T) {
	tbl := mustParse(t, "\ufeffid\tdescription\tcity\n1\tOld mill\tSalem\n2\tShort row\n")

	if want := []string{"id", "description", "city"}; !reflect.DeepEqual(tbl.Header, want) {
		t.Errorf("Header = %v, want %v", tbl.Header, want)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if got := tbl.Value(1, "city"); got != "" {
		t.Errorf("padded cell = %q, want empty", got)
	}
	if got := tbl.Value(0, "city"); got != "Salem" {
		t.Errorf("Value(0, city) = %q, want Salem", got)
	}
	if got := tbl.Value(0, "missing"); got != "" {
		t.Errorf("Value(0, missing) = %q, want empty", got)
	}

	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("Parse(empty) should fail")
	}
}

func TestRecords(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIDs   []string
		wantDescs []string
	}{
		{
			name:      "id and description columns",
			input:     "id\tdescription\n7\tBuilt in 1850.\n9\tA mill.\n",
			wantIDs:   []string{"7", "9"},
			wantDescs: []string{"Built in 1850.", "A mill."},
		},
		{
			name:      "missing id uses row index",
			input:     "description\nfirst\nsecond\n",
			wantIDs:   []string{"0", "1"},
			wantDescs: []string{"first", "second"},
		},
		{
			name:      "duplicate ids are dropped",
			input:     "id\tdescription\n1\tfirst\n1\tagain\n2\tsecond\n",
			wantIDs:   []string{"1", "2"},
			wantDescs: []string{"first", "second"},
		},
		{
			name:      "longest text column substitutes description",
			input:     "id\tcity\tnotes\tlatitude\n1\tSalem\tA very long haunted story\t42.519539123456\n",
			wantIDs:   []string{"1"},
			wantDescs: []string{"A very long haunted story"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := mustParse(t, tt.input).Records()
			if err != nil {
				t.Fatalf("Records() error = %v", err)
			}
			var ids, descs []string
			for _, r := range recs {
				ids = append(ids, r.ID)
				descs = append(descs, r.Description)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
			if !reflect.DeepEqual(descs, tt.wantDescs) {
				t.Errorf("descriptions = %v, want %v", descs, tt.wantDescs)
			}
		})
	}

	t.Run("fields keep the original row", func(t *testing.T) {
		recs, err := mustParse(t, "id\tdescription\tcity\n1\tx\tSalem\n").Records()
		if err != nil {
			t.Fatalf("Records() error = %v", err)
		}
		if got := recs[0].Field("city"); got != "Salem" {
			t.Errorf("Field(city) = %q, want Salem", got)
		}
	})

	t.Run("no text column", func(t *testing.T) {
		_, err := mustParse(t, "id\tlatitude\n1\t42.5\n").Records()
		if !errors.Is(err, ErrNoTextColumn) {
			t.Errorf("Records() error = %v, want ErrNoTextColumn", err)
		}
	})
}

func TestWriteRowsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.tsv")
	rows := []record.Row{
		{ID: "1", Description: "Built in 1850.", ExtractedDate: "1850/01/01", Source: "description", Confidence: "high"},
		{ID: "2", Description: "Quoted \"ghost\" sighting", ExtractedDate: "2025/01/01", Source: "default", Confidence: "low"},
	}
	if err := WriteRows(path, rows); err != nil {
		t.Fatalf("WriteRows() error = %v", err)
	}

	tbl, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(tbl.Header, ResultHeader) {
		t.Errorf("Header = %v, want %v", tbl.Header, ResultHeader)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if got := tbl.Value(1, "description"); got != rows[1].Description {
		t.Errorf("description = %q, want %q", got, rows[1].Description)
	}
	if got := tbl.Value(0, "extracted_date"); got != "1850/01/01" {
		t.Errorf("extracted_date = %q, want 1850/01/01", got)
	}
}

func TestMerge(t *testing.T) {
	rows := []record.Row{
		{ID: "0", Description: "Old Mill, Salem, creaks", ExtractedDate: "1850/01/01", Source: "description", Confidence: "high"},
		{ID: "1", Description: "Red Barn, Dover, lights", ExtractedDate: "2025/01/01", Source: "default", Confidence: "low"},
	}

	t.Run("join by id column", func(t *testing.T) {
		tbl := mustParse(t, "id\tdescription\n1\tb\n0\ta\n5\tc\n")
		merged, rep := merge(tbl, rows, record.SentinelDate)
		if rep.Join != JoinID || rep.Matched != 2 {
			t.Errorf("report = %+v, want id join with 2 matches", rep)
		}
		want := []string{"1", "b", "2025/01/01", "default", "low"}
		if !reflect.DeepEqual(merged.Rows[0], want) {
			t.Errorf("row 0 = %v, want %v", merged.Rows[0], want)
		}
		want = []string{"5", "c", record.SentinelDate, SourceNotProcessed, ConfidenceNone}
		if !reflect.DeepEqual(merged.Rows[2], want) {
			t.Errorf("row 2 = %v, want %v", merged.Rows[2], want)
		}
	})

	t.Run("join by row index", func(t *testing.T) {
		tbl := mustParse(t, "description\na\nb\n")
		merged, rep := merge(tbl, rows, record.SentinelDate)
		if rep.Join != JoinIndex {
			t.Fatalf("Join = %s, want index", rep.Join)
		}
		if got := merged.Value(0, ColumnEvidenceDate); got != "1850/01/01" {
			t.Errorf("evidence_date = %q, want 1850/01/01", got)
		}
		if got := merged.Value(1, ColumnDateSource); got != "default" {
			t.Errorf("date_source = %q, want default", got)
		}
	})

	t.Run("join by composite key", func(t *testing.T) {
		tbl := mustParse(t, "location\tcity\nOld Mill\tSalem\nRed Barn\tDover\nLone Oak\tTroy\nX\tY\n")
		dup := append(rows, record.Row{
			ID: "9", Description: "Old Mill, Salem, again", ExtractedDate: "1901/01/01", Source: "google", Confidence: "medium",
		})
		merged, rep := merge(tbl, dup, record.SentinelDate)
		if rep.Join != JoinComposite {
			t.Fatalf("Join = %s, want composite", rep.Join)
		}
		if rep.Collision != 1 {
			t.Errorf("Collision = %d, want 1", rep.Collision)
		}
		if got := merged.Value(0, ColumnEvidenceDate); got != "1901/01/01" {
			t.Errorf("last result should win, got %q", got)
		}
		if got := merged.Value(2, ColumnDateSource); got != SourceNotProcessed {
			t.Errorf("unmatched date_source = %q, want %s", got, SourceNotProcessed)
		}
	})

	t.Run("existing columns are overwritten", func(t *testing.T) {
		tbl := mustParse(t, "id\tevidence_date\n0\told\n")
		merged := Merge(tbl, rows, record.SentinelDate)
		want := []string{"id", "evidence_date", "date_source", "date_confidence"}
		if !reflect.DeepEqual(merged.Header, want) {
			t.Errorf("Header = %v, want %v", merged.Header, want)
		}
		if got := merged.Value(0, ColumnEvidenceDate); got != "1850/01/01" {
			t.Errorf("evidence_date = %q, want 1850/01/01", got)
		}
		if got := tbl.Value(0, ColumnEvidenceDate); got != "old" {
			t.Errorf("input table modified: %q", got)
		}
	})
}

func TestDescriptionKey(t *testing.T) {
	tests := map[string]string{
		"Old Mill, Salem, creaks": "Old Mill|Salem",
		"Old Mill,Salem":          "Old Mill|Salem",
		"No comma here":           "",
	}
	for in, want := range tests {
		if got := descriptionKey(in); got != want {
			t.Errorf("descriptionKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	if got, want := BackupPath("data/results.tsv", now), "data/results_20240305_140709.tsv"; got != want {
		t.Errorf("BackupPath() = %q, want %q", got, want)
	}
	if got, want := MergedPath("data/results.tsv"), "data/results_merged.tsv"; got != want {
		t.Errorf("MergedPath() = %q, want %q", got, want)
	}
}
