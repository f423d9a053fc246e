// Package text finds music streaming links in chat messages.
package text

import (
	"odeslibot/pkg/musiclink"
)

// Extractor scans message text for links of registered platforms.
type Extractor struct {
	registry *musiclink.Registry
}

// NewExtractor creates an extractor over the given registry.
func NewExtractor(registry *musiclink.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract returns every platform link found in text, grouped by platform
// priority and then by position in the text. Platforms whose key is in
// excluded are skipped.
func (e *Extractor) Extract(text string, excluded map[string]struct{}) []musiclink.FoundLink {
	var links []musiclink.FoundLink

	for _, p := range e.registry.All() {
		if _, skip := excluded[p.Key]; skip {
			continue
		}
		for _, match := range p.Pattern.FindAllString(text, -1) {
			links = append(links, musiclink.FoundLink{
				PlatformKey: p.Key,
				Name:        p.Name,
				RawURL:      match,
			})
		}
	}

	return links
}

// KeySet builds an exclusion set from platform keys.
func KeySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
