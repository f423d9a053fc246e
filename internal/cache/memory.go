package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"odeslibot/pkg/musiclink"
)

type entry struct {
	song      *musiclink.SongInfo
	expiresAt time.Time
}

// Memory is an in-process cache. Entries expire after their own TTL; the
// underlying LRU only bounds memory when maxEntries is positive.
type Memory struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemory creates a memory cache. maxTTL is the longest TTL that will be
// requested and lets the LRU drop stale entries in the background.
func NewMemory(maxEntries int, maxTTL time.Duration) *Memory {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Memory{
		lru: expirable.NewLRU[string, entry](maxEntries, nil, maxTTL),
		now: time.Now,
	}
}

// Get returns a copy of the cached song.
func (m *Memory) Get(key string) (*musiclink.SongInfo, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return e.song.Clone(), true
}

// Set stores a copy of song for ttl.
func (m *Memory) Set(key string, song *musiclink.SongInfo, ttl time.Duration) {
	if ttl <= 0 || !song.Resolved() {
		return
	}
	m.lru.Add(key, entry{song: song.Clone(), expiresAt: m.now().Add(ttl)})
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.lru.Purge()
}

// Len returns the number of stored entries, including ones not yet expired by the clock.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Close releases nothing; it exists to satisfy Store.
func (m *Memory) Close() error {
	return nil
}
