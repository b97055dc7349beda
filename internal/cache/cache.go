package cache

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

// Bucket names one of the independent caches.
type Bucket string

const (
	BucketKnowledgeBase Bucket = "wikipedia"
	BucketSearch        Bucket = "search"
	BucketWeb           Bucket = "web"
	BucketResults       Bucket = "results"
)

// Buckets lists every bucket in a stable order.
var Buckets = []Bucket{BucketKnowledgeBase, BucketSearch, BucketWeb, BucketResults}

// DefaultFlushEvery is how many newly processed ids trigger a
// non-forced flush.
const DefaultFlushEvery = 50

// Store is the cache contract shared by every resolver.
type Store interface {
	// Get returns the raw value stored under key.
	Get(b Bucket, key string) ([]byte, bool)
	// Put stores value under key, replacing any previous value.
	Put(b Bucket, key string, value []byte)
	// MarkProcessed adds id to the processed set.
	MarkProcessed(id string)
	// IsProcessed reports whether id is in the processed set.
	IsProcessed(id string) bool
	// Processed returns the processed ids, sorted.
	Processed() []string
	// Len returns the number of entries in a bucket.
	Len(b Bucket) int
	// Flush persists state. Without force it only writes once enough ids
	// were processed since the last write.
	Flush(force bool) error
	// Forget drops the processed ids and stored results but keeps the
	// lookup buckets. The next Flush persists the change.
	Forget()
	// Reset drops all entries and processed ids, including durable copies.
	Reset() error
}

// Key derives a stable cache key from its parts.
func Key(parts ...string) string {
	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Load decodes the JSON value under key into a T. Undecodable entries are
// reported as misses.
func Load[T any](s Store, b Bucket, key string) (T, bool) {
	var v T
	raw, ok := s.Get(b, key)
	if !ok {
		logger.IncrCounter("cache." + string(b) + ".miss")
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warn("Discarding undecodable cache entry", logger.Fields{"bucket": string(b)})
		logger.IncrCounter("cache." + string(b) + ".corrupt")
		var zero T
		return zero, false
	}
	logger.IncrCounter("cache." + string(b) + ".hit")
	return v, true
}

// Save JSON-encodes v and stores it under key.
func Save[T any](s Store, b Bucket, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Error("Cannot encode cache entry", logger.Fields{"bucket": string(b)}, err)
		return
	}
	s.Put(b, key, raw)
}

// state is the in-memory core shared by Memory and File.
type state struct {
	mu         sync.RWMutex
	buckets    map[Bucket]map[string][]byte
	processed  map[string]struct{}
	pending    int
	flushEvery int
}

func newState(flushEvery int) *state {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	s := &state{flushEvery: flushEvery}
	s.clear()
	return s
}

func (s *state) clear() {
	s.buckets = make(map[Bucket]map[string][]byte, len(Buckets))
	for _, b := range Buckets {
		s.buckets[b] = make(map[string][]byte)
	}
	s.processed = make(map[string]struct{})
	s.pending = 0
}

func (s *state) Get(b Bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.buckets[b][key]
	return v, ok
}

func (s *state) Put(b Bucket, key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.buckets[b]
	if !ok {
		m = make(map[string][]byte)
		s.buckets[b] = m
	}
	m[key] = value
}

func (s *state) MarkProcessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[id]; ok {
		return
	}
	s.processed[id] = struct{}{}
	s.pending++
}

func (s *state) IsProcessed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[id]
	return ok
}

func (s *state) Processed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.processed))
	for id := range s.processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *state) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[BucketResults] = make(map[string][]byte)
	s.processed = make(map[string]struct{})
	s.pending = 0
}

func (s *state) Len(b Bucket) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[b])
}

// due reports whether a flush should write, and if so resets the counter.
// Callers hold s.mu.
func (s *state) due(force bool) bool {
	if !force && s.pending < s.flushEvery {
		return false
	}
	s.pending = 0
	return true
}

// Memory is a Store that never touches disk.
type Memory struct {
	*state
	flushes int
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{state: newState(DefaultFlushEvery)}
}

// Flush records that a write would have happened.
func (m *Memory) Flush(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.due(force) {
		m.flushes++
	}
	return nil
}

// Flushes returns how many flushes would have written to disk.
func (m *Memory) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Reset clears everything.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	return nil
}
