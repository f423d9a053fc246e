package musiclink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fourLinkPayload = `{
  "entityUniqueId": "DEEZER_SONG::1",
  "entitiesByUniqueId": {
    "DEEZER_SONG::1": {
      "id": "1", "apiProvider": "deezer", "type": "song",
      "title": "Test Title", "artistName": "Test Artist", "thumbnailUrl": "http://thumb1"
    },
    "SPOTIFY_SONG::abc": {
      "id": "abc", "apiProvider": "spotify",
      "title": "Test Title", "artistName": "Test Artist", "thumbnailUrl": "http://thumb2"
    }
  },
  "linksByPlatform": {
    "spotify": {"entityUniqueId": "SPOTIFY_SONG::abc", "url": "https://www.test.com/s"},
    "napster": {"entityUniqueId": "DEEZER_SONG::1", "url": "https://www.test.com/n"},
    "yandex": {"entityUniqueId": "DEEZER_SONG::1", "url": "https://www.test.com/yn"},
    "deezer": {"entityUniqueId": "DEEZER_SONG::1", "url": "https://www.test.com/d"},
    "appleMusic": {"entityUniqueId": "DEEZER_SONG::1", "url": "https://geo.www.test.com/am"}
  }
}`

func TestParseResponse_Valid(t *testing.T) {
	resp, err := parseResponse([]byte(fourLinkPayload))
	require.NoError(t, err)

	song := resp.toSongInfo(DefaultRegistry(), "https://www.deezer.com/track/1", zap.NewNop())

	assert.Equal(t, []string{"1", "abc"}, song.SortedIDs())
	assert.Equal(t, "Test Title", song.Title)
	assert.Equal(t, "Test Artist", song.Artist)
	assert.Equal(t, "http://thumb1", song.ThumbnailURL)
	assert.Equal(t, []string{"Deezer", "Apple Music", "Spotify", "Yandex Music"}, song.PlatformNames())
	assert.Equal(t, "https://www.test.com/d", song.PlatformURLs[0].URL)
	assert.Equal(t, []string{"https://www.deezer.com/track/1"}, song.SourceURLs)
}

func TestParseResponse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not JSON", `<html>`},
		{"Missing entities", `{"linksByPlatform": {}}`},
		{"Missing links", `{"entitiesByUniqueId": {"A": {"id": "1", "apiProvider": "x"}}}`},
		{"Entities not an object", `{"entitiesByUniqueId": [], "linksByPlatform": {}}`},
		{"Empty entities", `{"entitiesByUniqueId": {}, "linksByPlatform": {}}`},
		{"Entity without id", `{"entitiesByUniqueId": {"A": {"apiProvider": "x"}}, "linksByPlatform": {}}`},
		{"Entity without provider", `{"entitiesByUniqueId": {"A": {"id": "1"}}, "linksByPlatform": {}}`},
		{"Title not a string", `{"entitiesByUniqueId": {"A": {"id": "1", "apiProvider": "x", "title": 5}}, "linksByPlatform": {}}`},
		{
			"Link without entity id",
			`{"entitiesByUniqueId": {"A": {"id": "1", "apiProvider": "x"}}, "linksByPlatform": {"deezer": {"url": "https://d"}}}`,
		},
		{
			"Link with relative url",
			`{"entitiesByUniqueId": {"A": {"id": "1", "apiProvider": "x"}},
			  "linksByPlatform": {"deezer": {"entityUniqueId": "A", "url": "/track/1"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseResponse_NumericIDs(t *testing.T) {
	body := `{
	  "entitiesByUniqueId": {"BANDCAMP_SONG::42": {"id": 42, "apiProvider": "bandcamp", "title": "T"}},
	  "linksByPlatform": {"bandcamp": {"entityUniqueId": "BANDCAMP_SONG::42", "url": "https://a.bandcamp.com/track/t"}}
	}`

	resp, err := parseResponse([]byte(body))
	require.NoError(t, err)

	song := resp.toSongInfo(DefaultRegistry(), "https://a.bandcamp.com/track/t", zap.NewNop())
	assert.True(t, song.HasID("42"))
	assert.Empty(t, song.Artist)
}

const napsterOnlyPayload = `{
  "entitiesByUniqueId": {
    "NAPSTER_SONG::7": {"id": "7", "apiProvider": "napster", "title": "T", "artistName": "A"}
  },
  "linksByPlatform": {
    "napster": {"entityUniqueId": "NAPSTER_SONG::7", "url": "https://www.test.com/n"}
  }
}`

func TestParseResponse_NoSupportedPlatform(t *testing.T) {
	resp, err := parseResponse([]byte(napsterOnlyPayload))
	require.NoError(t, err)

	song := resp.toSongInfo(DefaultRegistry(), "https://www.deezer.com/track/7", zap.NewNop())

	assert.False(t, song.Resolved())
	assert.Empty(t, song.IDs)
	assert.Empty(t, song.PlatformURLs)
	assert.Empty(t, song.Title)
	assert.Equal(t, []string{"https://www.deezer.com/track/7"}, song.SourceURLs)
}

func TestMostFrequent(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{"Empty", nil, ""},
		{"Majority wins", []string{"A", "B", "B"}, "B"},
		{"Tie goes to first seen", []string{"A", "B", "B", "A"}, "A"},
		{"Blank values do not vote", []string{"", "", "C"}, "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mostFrequent(tt.values))
		})
	}
}
