package musiclink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func songWith(ids []string, keys []string, source string) *SongInfo {
	s := NewEmptySongInfo(source)
	for _, id := range ids {
		s.IDs[id] = struct{}{}
	}
	r := DefaultRegistry()
	for _, k := range keys {
		p, _ := r.Lookup(k)
		s.PlatformURLs = append(s.PlatformURLs, PlatformURL{Key: k, Name: p.Name, URL: "https://" + k + "/" + source, Priority: p.Priority})
	}
	return s
}

func TestSongInfo_Absorb(t *testing.T) {
	a := songWith([]string{"1"}, []string{"spotify"}, "a")
	b := songWith([]string{"1", "2"}, []string{"deezer", "spotify"}, "b")

	a.Absorb(b)

	assert.Equal(t, []string{"1", "2"}, a.SortedIDs())
	assert.Equal(t, []string{"Deezer", "Spotify"}, a.PlatformNames())
	assert.Equal(t, "https://spotify/a", a.PlatformURLs[1].URL, "existing platform link wins")
	assert.Equal(t, []string{"a", "b"}, a.SourceURLs)
}

func TestSongInfo_Clone(t *testing.T) {
	a := songWith([]string{"1"}, []string{"spotify"}, "a")
	c := a.Clone()

	c.IDs["2"] = struct{}{}
	c.PlatformURLs[0].URL = "changed"
	c.SourceURLs[0] = "changed"

	assert.False(t, a.HasID("2"))
	assert.Equal(t, "https://spotify/a", a.PlatformURLs[0].URL)
	assert.Equal(t, "a", a.SourceURLs[0])
	assert.Nil(t, (*SongInfo)(nil).Clone())
}

func TestKindOf(t *testing.T) {
	err := &ResolutionError{Kind: NotFound, URL: "u", Status: 404}
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
	assert.Equal(t, "not_found", NotFound.String())
	assert.Contains(t, err.Error(), "status 404")
}
