package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "processed record",
			fields:  Fields{"id": "17"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "cache hit",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "flush failed",
			err:     errors.New("disk full"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := buf.Len()
			logger.log(tt.level, tt.message, tt.fields, tt.err)
			logged := buf.Len() > before

			if logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLogger_JSONLine(t *testing.T) {
	var buf bytes.Buffer
	New(LevelDebug, &buf).Error("fetch failed", Fields{"url": "https://example.org"}, errors.New("timeout"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v (line %q)", err, buf.String())
	}
	if entry.Level != "ERROR" || entry.Message != "fetch failed" || entry.Error != "timeout" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["url"] != "https://example.org" {
		t.Errorf("Fields[url] = %v", entry.Fields["url"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := New(LevelInfo, &buf)
	child := base.With(Fields{"run_id": "abc"})

	child.Info("batch done", Fields{"batch": 3})
	base.Info("plain", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first, second LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}

	if first.Fields["run_id"] != "abc" || first.Fields["batch"] != float64(3) {
		t.Errorf("child fields = %v", first.Fields)
	}
	if _, ok := second.Fields["run_id"]; ok {
		t.Errorf("parent logger picked up child fields: %v", second.Fields)
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("worker", Fields{"n": i})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("interleaved line %q: %v", line, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("cache.web.hit")
	m.IncrCounter("cache.web.hit")
	m.AddCounter("cache.web.hit", 3)

	if got := m.Counter("cache.web.hit"); got != 5 {
		t.Errorf("Counter = %v, want 5", got)
	}

	snap := m.Snapshot()
	if snap.Counters["cache.web.hit"] != 5 {
		t.Errorf("Snapshot counter = %v, want 5", snap.Counters["cache.web.hit"])
	}
	if names := snap.CounterNames(); len(names) != 1 || names[0] != "cache.web.hit" {
		t.Errorf("CounterNames() = %v", names)
	}
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("fetch.page", 100*time.Millisecond)
	m.RecordTiming("fetch.page", 200*time.Millisecond)
	m.RecordTiming("fetch.page", 150*time.Millisecond)

	stats := m.Snapshot().Timings["fetch.page"]
	if stats.Count != 3 {
		t.Errorf("Timing count = %v, want 3", stats.Count)
	}
	if stats.Min != "100ms" {
		t.Errorf("Min timing = %v, want 100ms", stats.Min)
	}
	if stats.Max != "200ms" {
		t.Errorf("Max timing = %v, want 200ms", stats.Max)
	}
	if stats.Average != "150ms" {
		t.Errorf("Average timing = %v, want 150ms", stats.Average)
	}

	m.Reset()
	if len(m.Snapshot().Timings) != 0 {
		t.Error("Reset() left timings behind")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(LevelDebug, &buf))
	defer SetDefault(prev)

	Debug("debug", nil)
	Info("info", Fields{"key": "value"})
	Warn("warn", nil)
	Error("error", Fields{"component": "test"}, errors.New("boom"))

	if got := strings.Count(buf.String(), "\n"); got != 4 {
		t.Errorf("wrote %d lines, want 4", got)
	}

	IncrCounter("test")
	RecordTiming("test", time.Second)
	if GetMetricsSnapshot().Counters["test"] < 1 {
		t.Error("default metrics did not record counter")
	}
}
