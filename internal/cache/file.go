package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

// ProgressFile holds the processed ids of a batch run.
const ProgressFile = "progress.json"

var bucketFiles = map[Bucket]string{
	BucketKnowledgeBase: "wikipedia_cache.gob",
	BucketSearch:        "search_cache.gob",
	BucketWeb:           "web_cache.gob",
	BucketResults:       "results_cache.gob",
}

// BucketFile returns the file name used for a bucket.
func BucketFile(b Bucket) string {
	return bucketFiles[b]
}

type progress struct {
	ProcessedIDs []string `json:"processed_ids"`
}

// File is a Store persisted in a directory.
type File struct {
	*state
	dir string
}

// Open loads the store kept in dir, creating the directory when needed.
// Missing files start empty. Unreadable files are logged and treated as
// empty so a damaged cache never blocks a run.
func Open(dir string, flushEvery int) (*File, error) {
	dir, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	f := &File{state: newState(flushEvery), dir: dir}
	for _, b := range Buckets {
		m, err := readBucket(filepath.Join(dir, bucketFiles[b]))
		if err != nil {
			logger.Warn("Ignoring unreadable cache file", logger.Fields{
				"bucket": string(b),
				"error":  err.Error(),
			})
			continue
		}
		f.buckets[b] = m
	}

	ids, err := readProgress(filepath.Join(dir, ProgressFile))
	if err != nil {
		logger.Warn("Ignoring unreadable progress file", logger.Fields{"error": err.Error()})
	}
	for _, id := range ids {
		f.processed[id] = struct{}{}
	}

	logger.Debug("Opened cache", logger.Fields{
		"dir":       dir,
		"processed": len(f.processed),
		"results":   len(f.buckets[BucketResults]),
	})
	return f, nil
}

// Dir returns the cache directory.
func (f *File) Dir() string {
	return f.dir
}

// Path returns the file holding bucket b.
func (f *File) Path(b Bucket) string {
	return filepath.Join(f.dir, bucketFiles[b])
}

// Flush writes every bucket and the progress file. Without force the write
// only happens once enough ids were processed since the last flush.
func (f *File) Flush(force bool) error {
	// Held for the whole write so no Put lands between encode and rename.
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.due(force) {
		return nil
	}

	start := time.Now()
	var errs []error
	for _, b := range Buckets {
		if err := writeBucket(filepath.Join(f.dir, bucketFiles[b]), f.buckets[b]); err != nil {
			errs = append(errs, fmt.Errorf("writing %s cache: %w", b, err))
		}
	}

	ids := make([]string, 0, len(f.processed))
	for id := range f.processed {
		ids = append(ids, id)
	}
	if err := writeProgress(filepath.Join(f.dir, ProgressFile), ids); err != nil {
		errs = append(errs, fmt.Errorf("writing progress: %w", err))
	}

	logger.RecordTiming("cache.flush", time.Since(start))
	logger.IncrCounter("cache.flush")
	return errors.Join(errs...)
}

// Reset clears memory and deletes the persisted files.
func (f *File) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clear()

	var errs []error
	names := []string{ProgressFile}
	for _, b := range Buckets {
		names = append(names, bucketFiles[b])
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readBucket(path string) (map[string][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]byte), nil
		}
		return nil, err
	}
	m := make(map[string][]byte)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func writeBucket(path string, m map[string][]byte) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func readProgress(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing progress: %w", err)
	}
	return p.ProcessedIDs, nil
}

func writeProgress(path string, ids []string) error {
	data, err := json.MarshalIndent(progress{ProcessedIDs: ids}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// writeAtomic replaces path via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return dir, nil
}
