package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
)

func TestKey(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Error("Key() is not deterministic")
	}
	if Key("a", "b") == Key("ab") {
		t.Error("Key() should separate parts")
	}
	if got := len(Key("x")); got != 40 {
		t.Errorf("len(Key()) = %d, want 40", got)
	}
}

func TestMemory(t *testing.T) {
	s := NewMemory()

	t.Run("new store is empty", func(t *testing.T) {
		for _, b := range Buckets {
			if s.Len(b) != 0 {
				t.Errorf("Len(%s) = %d, want 0", b, s.Len(b))
			}
		}
		if len(s.Processed()) != 0 {
			t.Error("Processed() should be empty")
		}
	})

	t.Run("buckets are independent", func(t *testing.T) {
		s.Put(BucketWeb, "k", []byte("web"))
		s.Put(BucketSearch, "k", []byte("search"))

		got, ok := s.Get(BucketWeb, "k")
		if !ok || string(got) != "web" {
			t.Errorf("Get(web) = %q, %v", got, ok)
		}
		got, ok = s.Get(BucketSearch, "k")
		if !ok || string(got) != "search" {
			t.Errorf("Get(search) = %q, %v", got, ok)
		}
		if _, ok := s.Get(BucketResults, "k"); ok {
			t.Error("Get(results) should miss")
		}
	})

	t.Run("processed ids", func(t *testing.T) {
		s.MarkProcessed("b")
		s.MarkProcessed("a")
		s.MarkProcessed("a")
		if !s.IsProcessed("a") || s.IsProcessed("c") {
			t.Error("IsProcessed() mismatch")
		}
		if got := s.Processed(); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Errorf("Processed() = %v", got)
		}
	})

	t.Run("forget keeps lookups", func(t *testing.T) {
		s.Put(BucketResults, "a", []byte("{}"))
		s.Forget()
		if s.IsProcessed("a") || s.Len(BucketResults) != 0 {
			t.Error("Forget() left results behind")
		}
		if s.Len(BucketWeb) == 0 {
			t.Error("Forget() dropped a lookup bucket")
		}
	})

	t.Run("reset", func(t *testing.T) {
		if err := s.Reset(); err != nil {
			t.Fatal(err)
		}
		if s.Len(BucketWeb) != 0 || s.IsProcessed("a") {
			t.Error("Reset() left data behind")
		}
	})
}

func TestMemory_FlushCadence(t *testing.T) {
	s := NewMemory()
	for i := 0; i < DefaultFlushEvery-1; i++ {
		s.MarkProcessed(strconv.Itoa(i))
		_ = s.Flush(false)
	}
	if s.Flushes() != 0 {
		t.Fatalf("Flushes() = %d before threshold, want 0", s.Flushes())
	}

	s.MarkProcessed("last")
	_ = s.Flush(false)
	if s.Flushes() != 1 {
		t.Fatalf("Flushes() = %d at threshold, want 1", s.Flushes())
	}

	_ = s.Flush(false)
	if s.Flushes() != 1 {
		t.Errorf("Flush(false) with nothing pending wrote")
	}
	_ = s.Flush(true)
	if s.Flushes() != 2 {
		t.Errorf("Flush(true) did not write")
	}
}

func TestLoadSave(t *testing.T) {
	type entry struct {
		Year int    `json:"year"`
		URL  string `json:"url"`
	}
	s := NewMemory()

	if _, ok := Load[entry](s, BucketWeb, "missing"); ok {
		t.Error("Load() on missing key should miss")
	}

	Save(s, BucketWeb, "k", entry{Year: 1871, URL: "https://example.org"})
	got, ok := Load[entry](s, BucketWeb, "k")
	if !ok || got.Year != 1871 {
		t.Errorf("Load() = %+v, %v", got, ok)
	}

	s.Put(BucketWeb, "bad", []byte("{not json"))
	if _, ok := Load[entry](s, BucketWeb, "bad"); ok {
		t.Error("Load() on corrupt entry should miss")
	}

	// A stored nil pointer is a cached negative, distinct from a miss.
	Save[*entry](s, BucketWeb, "neg", nil)
	v, ok := Load[*entry](s, BucketWeb, "neg")
	if !ok || v != nil {
		t.Errorf("Load() negative = %v, %v", v, ok)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	f, err := Open(dir, 2)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	f.Put(BucketKnowledgeBase, "page", []byte("extract"))
	f.Put(BucketResults, "17", []byte(`{"source":"description"}`))
	f.MarkProcessed("17")

	if err := f.Flush(false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ProgressFile)); !os.IsNotExist(err) {
		t.Fatal("Flush(false) below threshold should not write")
	}

	if err := f.Flush(true); err != nil {
		t.Fatalf("Flush(true) error = %v", err)
	}
	for _, b := range Buckets {
		if _, err := os.Stat(filepath.Join(dir, BucketFile(b))); err != nil {
			t.Errorf("missing %s: %v", BucketFile(b), err)
		}
	}

	reopened, err := Open(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := reopened.Get(BucketKnowledgeBase, "page"); !ok || string(got) != "extract" {
		t.Errorf("reopened Get() = %q, %v", got, ok)
	}
	if !reopened.IsProcessed("17") {
		t.Error("reopened store lost processed id")
	}
}

func TestFile_CorruptFilesStartEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, BucketFile(BucketWeb)), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProgressFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(dir, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if f.Len(BucketWeb) != 0 || len(f.Processed()) != 0 {
		t.Error("corrupt files should load as empty")
	}
}

func TestFile_Reset(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.Put(BucketSearch, "q", []byte("[]"))
	f.MarkProcessed("1")
	if err := f.Flush(true); err != nil {
		t.Fatal(err)
	}

	if err := f.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Reset() left %d files", len(entries))
	}

	// Resetting twice is fine.
	if err := f.Reset(); err != nil {
		t.Errorf("second Reset() error = %v", err)
	}
}
