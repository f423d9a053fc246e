package core

import (
	"odeslibot/pkg/musiclink"
)

// Merge folds songs that share an identifier into the earliest of them.
//
// The pass is forward only: each surviving entry absorbs every later entry
// whose identifiers intersect its own, and its identifier set grows while it
// does so. Entries that were skipped before a given entry started scanning are
// never revisited. Unresolved entries never merge. Surviving entries keep
// their relative order. Input songs are modified in place.
func Merge(songs []*musiclink.SongInfo) []*musiclink.SongInfo {
	absorbed := make([]bool, len(songs))

	for i, a := range songs {
		if absorbed[i] || !a.Resolved() {
			continue
		}
		for j := i + 1; j < len(songs); j++ {
			b := songs[j]
			if absorbed[j] || !b.Resolved() || !sharesID(a, b) {
				continue
			}
			a.Absorb(b)
			absorbed[j] = true
		}
	}

	merged := make([]*musiclink.SongInfo, 0, len(songs))
	for i, s := range songs {
		if !absorbed[i] {
			merged = append(merged, s)
		}
	}
	return merged
}

func sharesID(a, b *musiclink.SongInfo) bool {
	small, large := a, b
	if len(small.IDs) > len(large.IDs) {
		small, large = large, small
	}
	for id := range small.IDs {
		if large.HasID(id) {
			return true
		}
	}
	return false
}
