package musiclink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Order(t *testing.T) {
	r := DefaultRegistry()

	keys := make([]string, 0, r.Len())
	for _, p := range r.All() {
		keys = append(keys, p.Key)
	}

	assert.Equal(t, []string{
		"deezer", "appleMusic", "spotify", "youtubeMusic", "youtube",
		"tidal", "amazonMusic", "soundcloud", "yandex", "bandcamp",
	}, keys)
	assert.Equal(t, "Deezer", r.Names()[0])
}

func TestDefaultRegistry_Patterns(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name     string
		key      string
		url      string
		expected bool
	}{
		{"Deezer track", "deezer", "https://www.deezer.com/track/65760860", true},
		{"Deezer short link", "deezer", "https://deezer.page.link/abc", true},
		{"Deezer without scheme", "deezer", "www.deezer.com/track/1", false},
		{"Apple Music album", "appleMusic", "https://music.apple.com/us/album/test/123?i=456", true},
		{"Spotify track", "spotify", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", true},
		{"Spotify short link", "spotify", "https://spotify.link/abc", true},
		{"YouTube Music", "youtubeMusic", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"YouTube standard", "youtube", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"YouTube short", "youtube", "https://youtu.be/dQw4w9WgXcQ", true},
		{"YouTube Music is not YouTube", "youtube", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"Tidal", "tidal", "https://tidal.com/browse/track/12345678", true},
		{"Amazon Music", "amazonMusic", "https://music.amazon.com/albums/B08X123456", true},
		{"SoundCloud", "soundcloud", "https://soundcloud.com/worakls/nto-trauma-worakls", true},
		{"Yandex Music", "yandex", "https://music.yandex.ru/album/1/track/2", true},
		{"Bandcamp", "bandcamp", "https://artist.bandcamp.com/track/song", true},
		{"Unrelated host", "deezer", "https://example.com/track/1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.expected, p.Pattern.MatchString(tt.url), "%s pattern on %q", tt.key, tt.url)
		})
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	p, _ := DefaultRegistry().Lookup("deezer")
	_, err := NewRegistry(p, p)
	require.Error(t, err)
}

func TestRegistry_NormalizeLink(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name     string
		link     FoundLink
		expected string
	}{
		{
			name:     "Strips utm parameters",
			link:     FoundLink{PlatformKey: "deezer", RawURL: "https://www.deezer.com/track/1?utm_source=x&utm_medium=y"},
			expected: "https://www.deezer.com/track/1",
		},
		{
			name:     "Spotify drops si",
			link:     FoundLink{PlatformKey: "spotify", RawURL: "https://open.spotify.com/track/abc?si=123"},
			expected: "https://open.spotify.com/track/abc",
		},
		{
			name:     "YouTube keeps only v",
			link:     FoundLink{PlatformKey: "youtube", RawURL: "https://www.youtube.com/watch?v=xyz&t=42&feature=share"},
			expected: "https://www.youtube.com/watch?v=xyz",
		},
		{
			name:     "Fragment removed",
			link:     FoundLink{PlatformKey: "bandcamp", RawURL: "https://a.bandcamp.com/track/b#lyrics"},
			expected: "https://a.bandcamp.com/track/b",
		},
		{
			name:     "Unknown platform keeps identity params",
			link:     FoundLink{PlatformKey: "other", RawURL: "https://x.example/a?id=1&fbclid=2"},
			expected: "https://x.example/a?id=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.NormalizeLink(tt.link))
		})
	}
}

func TestRegistry_WithOverrides(t *testing.T) {
	doc := `
platforms:
  youtube:
    disabled: true
  yandex:
    name: Yandex
    priority: -1
`
	r, err := DefaultRegistry().WithOverrides(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := r.Lookup("youtube")
	assert.False(t, ok)
	assert.Equal(t, "Yandex", r.All()[0].Name)
	assert.Equal(t, 9, r.Len())
}

func TestRegistry_WithOverridesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Unknown key", "platforms:\n  napster:\n    name: Napster\n"},
		{"Bad pattern", "platforms:\n  deezer:\n    pattern: \"(\"\n"},
		{"Not YAML", "platforms: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultRegistry().WithOverrides(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_WithOverridesEmpty(t *testing.T) {
	r, err := DefaultRegistry().WithOverrides(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultRegistry().Names(), r.Names())
}
