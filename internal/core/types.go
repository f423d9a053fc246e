package core

import (
	"context"
	"time"

	"odeslibot/pkg/musiclink"
)

// Resolver turns one found link into song information.
type Resolver interface {
	Resolve(ctx context.Context, link musiclink.FoundLink) (*musiclink.SongInfo, error)
}

// SongSearcher finds track links for free-text inline queries.
type SongSearcher interface {
	SearchTrackURLs(ctx context.Context, query string, limit int) ([]string, error)
}

// DedupStore remembers processed updates. Mark records key and reports
// whether it was new, atomically.
type DedupStore interface {
	Mark(key string) bool
}

// Metrics records pipeline activity.
type Metrics interface {
	RecordMessage(frontend, outcome string)
	RecordInlineQuery(frontend, outcome string)
	RecordProcessingTime(frontend string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string, string) {}

func (nopMetrics) RecordInlineQuery(string, string) {}

func (nopMetrics) RecordProcessingTime(string, time.Duration) {}
