// Package musiclink resolves music streaming links into cross-platform song information.
package musiclink

import (
	"sort"
	"time"
)

// FoundLink is a music link discovered in a message text.
type FoundLink struct {
	PlatformKey string // Registry key of the matching platform.
	Name        string // Human-readable platform name.
	RawURL      string // Link exactly as it appears in the text.
}

// PlatformURL is a link to the same song on one platform.
type PlatformURL struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// SongInfo holds resolved song metadata.
// An empty IDs set means the song could not be resolved.
type SongInfo struct {
	IDs          map[string]struct{} `json:"ids"`
	Title        string              `json:"title,omitempty"`
	Artist       string              `json:"artist,omitempty"`
	ThumbnailURL string              `json:"thumbnailUrl,omitempty"`
	PlatformURLs []PlatformURL       `json:"platformUrls,omitempty"`
	SourceURLs   []string            `json:"-"`
}

// NewEmptySongInfo returns an unresolved song carrying only the original link.
func NewEmptySongInfo(rawURL string) *SongInfo {
	return &SongInfo{
		IDs:        map[string]struct{}{},
		SourceURLs: []string{rawURL},
	}
}

// Resolved reports whether the song carries at least one service identifier.
func (s *SongInfo) Resolved() bool {
	return s != nil && len(s.IDs) > 0
}

// HasID reports whether id is one of the song identifiers.
func (s *SongInfo) HasID(id string) bool {
	_, ok := s.IDs[id]
	return ok
}

// SortedIDs returns the identifiers in lexical order.
func (s *SongInfo) SortedIDs() []string {
	ids := make([]string, 0, len(s.IDs))
	for id := range s.IDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the song.
func (s *SongInfo) Clone() *SongInfo {
	if s == nil {
		return nil
	}
	c := *s
	c.IDs = make(map[string]struct{}, len(s.IDs))
	for id := range s.IDs {
		c.IDs[id] = struct{}{}
	}
	c.PlatformURLs = append([]PlatformURL(nil), s.PlatformURLs...)
	c.SourceURLs = append([]string(nil), s.SourceURLs...)
	return &c
}

// Absorb merges other into s: identifiers, platform links and source links are united.
// Existing platform links win over links for the same platform from other.
func (s *SongInfo) Absorb(other *SongInfo) {
	for id := range other.IDs {
		s.IDs[id] = struct{}{}
	}

	for _, pu := range other.PlatformURLs {
		if !s.hasPlatform(pu.Key) {
			s.PlatformURLs = append(s.PlatformURLs, pu)
		}
	}
	sort.SliceStable(s.PlatformURLs, func(i, j int) bool {
		return s.PlatformURLs[i].Priority < s.PlatformURLs[j].Priority
	})

	for _, u := range other.SourceURLs {
		if !containsString(s.SourceURLs, u) {
			s.SourceURLs = append(s.SourceURLs, u)
		}
	}
}

// PlatformNames returns display names of the platform links in order.
func (s *SongInfo) PlatformNames() []string {
	names := make([]string, 0, len(s.PlatformURLs))
	for _, pu := range s.PlatformURLs {
		names = append(names, pu.Name)
	}
	return names
}

func (s *SongInfo) hasPlatform(key string) bool {
	for _, pu := range s.PlatformURLs {
		if pu.Key == key {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Cache stores resolved songs by normalized link.
// Implementations must store and return copies.
type Cache interface {
	Get(key string) (*SongInfo, bool)
	Set(key string, song *SongInfo, ttl time.Duration)
	Clear()
}

// NopCache never stores anything.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(string) (*SongInfo, bool) { return nil, false }

// Set discards the song.
func (NopCache) Set(string, *SongInfo, time.Duration) {}

// Clear does nothing.
func (NopCache) Clear() {}
