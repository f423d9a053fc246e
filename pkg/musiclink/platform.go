package musiclink

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Platform describes a supported music streaming platform.
type Platform struct {
	Key       string         // Resolution service platform key.
	Name      string         // Name shown in replies.
	Pattern   *regexp.Regexp // Finds platform links in text.
	Priority  int            // Lower values come first.
	Normalize func(u *url.URL)
}

// Registry is an immutable, priority-ordered set of platforms.
type Registry struct {
	platforms []Platform
	byKey     map[string]int
}

// NewRegistry builds a registry from the given platforms.
// Duplicate keys are rejected.
func NewRegistry(platforms ...Platform) (*Registry, error) {
	r := &Registry{
		platforms: make([]Platform, 0, len(platforms)),
		byKey:     make(map[string]int, len(platforms)),
	}

	sorted := append([]Platform(nil), platforms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	for _, p := range sorted {
		if p.Key == "" || p.Pattern == nil {
			return nil, fmt.Errorf("platform %q: key and pattern are required", p.Name)
		}
		if _, dup := r.byKey[p.Key]; dup {
			return nil, fmt.Errorf("platform %q registered twice", p.Key)
		}
		r.byKey[p.Key] = len(r.platforms)
		r.platforms = append(r.platforms, p)
	}

	return r, nil
}

// All returns the platforms in ascending priority order.
func (r *Registry) All() []Platform {
	return append([]Platform(nil), r.platforms...)
}

// Lookup returns the platform registered under key.
func (r *Registry) Lookup(key string) (Platform, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return Platform{}, false
	}
	return r.platforms[idx], true
}

// Names returns the display names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for _, p := range r.platforms {
		names = append(names, p.Name)
	}
	return names
}

// Len returns the number of registered platforms.
func (r *Registry) Len() int {
	return len(r.platforms)
}

// NormalizeLink strips tracking parameters from a found link and applies the
// platform's own normalization. The result is used as the cache key and the
// link sent to the resolution service.
func (r *Registry) NormalizeLink(link FoundLink) string {
	u, err := url.Parse(link.RawURL)
	if err != nil || u.Host == "" {
		return link.RawURL
	}

	stripTrackingParams(u)
	if p, ok := r.Lookup(link.PlatformKey); ok && p.Normalize != nil {
		p.Normalize(u)
	}

	return u.String()
}

var defaultPlatforms = []Platform{
	{
		Key:      "deezer",
		Name:     "Deezer",
		Pattern:  regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*deezer\.(com|page\.link)/[^\s,]*[^\s.,]`),
		Priority: 0,
	},
	{
		Key:      "appleMusic",
		Name:     "Apple Music",
		Pattern:  regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*music\.apple\.com/[^\s,]*[^\s.,]`),
		Priority: 1,
	},
	{
		Key:       "spotify",
		Name:      "Spotify",
		Pattern:   regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*spotify\.(com|link)/[^\s,]*[^\s.,]`),
		Priority:  2,
		Normalize: dropQueryParams("si", "context", "nd"),
	},
	{
		Key:       "youtubeMusic",
		Name:      "YouTube Music",
		Pattern:   regexp.MustCompile(`https?://music\.youtube\.com/[^\s,]*[^\s.,]`),
		Priority:  3,
		Normalize: keepQueryParams("v", "list"),
	},
	{
		Key:       "youtube",
		Name:      "YouTube",
		Pattern:   regexp.MustCompile(`https?://((www|m)\.)?(youtube\.com|youtu\.be)/[^\s,]*[^\s.,]`),
		Priority:  4,
		Normalize: keepQueryParams("v"),
	},
	{
		Key:      "tidal",
		Name:     "Tidal",
		Pattern:  regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*tidal\.com/[^\s,]*[^\s.,]`),
		Priority: 5,
	},
	{
		Key:      "amazonMusic",
		Name:     "Amazon Music",
		Pattern:  regexp.MustCompile(`https?://music\.amazon\.[a-z.]+/[^\s,]*[^\s.,]`),
		Priority: 6,
	},
	{
		Key:       "soundcloud",
		Name:      "SoundCloud",
		Pattern:   regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*soundcloud\.com/[^\s,]*[^\s.,]`),
		Priority:  7,
		Normalize: dropQueryParams("si", "ref", "p", "c"),
	},
	{
		Key:      "yandex",
		Name:     "Yandex Music",
		Pattern:  regexp.MustCompile(`https?://music\.yandex\.[a-z]+/[^\s,]*[^\s.,]`),
		Priority: 8,
	},
	{
		Key:      "bandcamp",
		Name:     "Bandcamp",
		Pattern:  regexp.MustCompile(`https?://([a-zA-Z\d-]+\.)*bandcamp\.com/[^\s,]*[^\s.,]`),
		Priority: 9,
	},
}

// DefaultRegistry returns the built-in platform table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultPlatforms...)
	if err != nil {
		panic(err)
	}
	return r
}

// PlatformOverride adjusts a built-in platform. Zero fields are left untouched.
type PlatformOverride struct {
	Name     string `yaml:"name"`
	Priority *int   `yaml:"priority"`
	Pattern  string `yaml:"pattern"`
	Disabled bool   `yaml:"disabled"`
}

type overridesFile struct {
	Platforms map[string]PlatformOverride `yaml:"platforms"`
}

// WithOverrides reads a YAML document of platform overrides and returns a new registry.
//
//	platforms:
//	  youtube:
//	    disabled: true
//	  yandex:
//	    name: Yandex
//	    priority: 3
func (r *Registry) WithOverrides(in io.Reader) (*Registry, error) {
	var doc overridesFile
	if err := yaml.NewDecoder(in).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode platform overrides: %w", err)
	}

	for key := range doc.Platforms {
		if _, ok := r.byKey[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, key)
		}
	}

	platforms := make([]Platform, 0, len(r.platforms))
	for _, p := range r.platforms {
		o, ok := doc.Platforms[p.Key]
		if !ok {
			platforms = append(platforms, p)
			continue
		}
		if o.Disabled {
			continue
		}
		if o.Name != "" {
			p.Name = o.Name
		}
		if o.Priority != nil {
			p.Priority = *o.Priority
		}
		if o.Pattern != "" {
			re, err := regexp.Compile(o.Pattern)
			if err != nil {
				return nil, fmt.Errorf("platform %s: invalid pattern: %w", p.Key, err)
			}
			p.Pattern = re
		}
		platforms = append(platforms, p)
	}

	return NewRegistry(platforms...)
}
