// Package store remembers which chat updates were already handled.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFalsePositiveRate is the bloom filter accuracy used by NewSeen callers.
const DefaultFalsePositiveRate = 0.001

// Seen is a bounded, thread-safe set of processed update keys.
// The LRU holds the authoritative keys; the bloom filter answers most misses
// without touching it and is rebuilt once evictions have made it stale.
type Seen struct {
	mutex     sync.Mutex
	keys      *lru.Cache[string, struct{}]
	filter    *bloom.BloomFilter
	capacity  int
	fpRate    float64
	evictions int
}

// NewSeen creates a set holding at most capacity keys.
func NewSeen(capacity int, falsePositiveRate float64) *Seen {
	if capacity <= 0 {
		capacity = 1
	}

	s := &Seen{
		capacity: capacity,
		fpRate:   falsePositiveRate,
		filter:   bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
	}
	s.keys, _ = lru.NewWithEvict[string, struct{}](capacity, func(string, struct{}) {
		s.evictions++
	})

	return s
}

// Mark records key and reports whether it is new.
func (s *Seen) Mark(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.has(key) {
		return false
	}
	s.add(key)
	return true
}

// Len returns the number of remembered keys.
func (s *Seen) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.keys.Len()
}

func (s *Seen) has(key string) bool {
	if !s.filter.TestString(key) {
		return false
	}
	return s.keys.Contains(key)
}

func (s *Seen) add(key string) {
	if s.keys.Contains(key) {
		return
	}

	s.keys.Add(key, struct{}{})
	s.filter.AddString(key)

	if s.evictions >= s.capacity {
		s.rebuildFilter()
	}
}

// rebuildFilter drops evicted keys from the bloom filter.
func (s *Seen) rebuildFilter() {
	s.filter = bloom.NewWithEstimates(uint(s.capacity), s.fpRate)
	for _, k := range s.keys.Keys() {
		s.filter.AddString(k)
	}
	s.evictions = 0
}
