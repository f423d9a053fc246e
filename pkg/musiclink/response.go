package musiclink

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	errMalformedJSON = errors.New("malformed JSON")
	errNoEntities    = errors.New("entitiesByUniqueId is empty")
)

type apiEntity struct {
	uniqueID     string
	id           string
	provider     string
	title        string
	artist       string
	thumbnailURL string
}

type apiLink struct {
	platform string
	entityID string
	url      string
}

// apiResponse keeps entities and links in document order.
type apiResponse struct {
	entities []apiEntity
	links    []apiLink
}

// parseResponse validates a resolution service payload.
func parseResponse(body []byte) (*apiResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errMalformedJSON
	}

	doc := gjson.ParseBytes(body)
	entities := doc.Get("entitiesByUniqueId")
	links := doc.Get("linksByPlatform")
	if !entities.IsObject() {
		return nil, errors.New("entitiesByUniqueId: required object")
	}
	if !links.IsObject() {
		return nil, errors.New("linksByPlatform: required object")
	}

	resp := &apiResponse{}
	var err error

	entities.ForEach(func(key, value gjson.Result) bool {
		var e apiEntity
		if e, err = parseEntity(key.String(), value); err != nil {
			return false
		}
		resp.entities = append(resp.entities, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(resp.entities) == 0 {
		return nil, errNoEntities
	}

	links.ForEach(func(key, value gjson.Result) bool {
		var l apiLink
		if l, err = parseLink(key.String(), value); err != nil {
			return false
		}
		resp.links = append(resp.links, l)
		return true
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func parseEntity(key string, v gjson.Result) (apiEntity, error) {
	if !v.IsObject() {
		return apiEntity{}, fmt.Errorf("entity %s: expected object", key)
	}

	id, err := requiredID(v.Get("id"))
	if err != nil {
		return apiEntity{}, fmt.Errorf("entity %s: id: %w", key, err)
	}
	provider := v.Get("apiProvider")
	if provider.Type != gjson.String || provider.String() == "" {
		return apiEntity{}, fmt.Errorf("entity %s: apiProvider: required string", key)
	}

	e := apiEntity{uniqueID: key, id: id, provider: provider.String()}
	for field, dst := range map[string]*string{
		"title":        &e.title,
		"artistName":   &e.artist,
		"thumbnailUrl": &e.thumbnailURL,
	} {
		s, err := optionalString(v.Get(field))
		if err != nil {
			return apiEntity{}, fmt.Errorf("entity %s: %s: %w", key, field, err)
		}
		*dst = s
	}

	return e, nil
}

func parseLink(platform string, v gjson.Result) (apiLink, error) {
	if !v.IsObject() {
		return apiLink{}, fmt.Errorf("link %s: expected object", platform)
	}

	entityID := v.Get("entityUniqueId")
	if entityID.Type != gjson.String || entityID.String() == "" {
		return apiLink{}, fmt.Errorf("link %s: entityUniqueId: required string", platform)
	}
	u := v.Get("url")
	if u.Type != gjson.String || !isAbsoluteURL(u.String()) {
		return apiLink{}, fmt.Errorf("link %s: url: not a valid URL", platform)
	}

	return apiLink{platform: platform, entityID: entityID.String(), url: u.String()}, nil
}

// requiredID accepts string and integer identifiers; some providers use numbers.
func requiredID(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.String:
		if v.String() == "" {
			return "", errors.New("empty")
		}
		return v.String(), nil
	case gjson.Number:
		return v.String(), nil
	default:
		return "", errors.New("required")
	}
}

func optionalString(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return v.String(), nil
	default:
		return "", errors.New("expected string")
	}
}

// toSongInfo builds song metadata from a validated payload. Platform links are
// restricted to registered platforms and ordered by their priority. A payload
// with no registered platform yields an empty song, keeping IDs and
// PlatformURLs empty together.
func (resp *apiResponse) toSongInfo(registry *Registry, rawURL string, logger *zap.Logger) *SongInfo {
	song := NewEmptySongInfo(rawURL)

	titles := make([]string, 0, len(resp.entities))
	artists := make([]string, 0, len(resp.entities))
	for _, e := range resp.entities {
		song.IDs[e.id] = struct{}{}
		titles = append(titles, e.title)
		artists = append(artists, e.artist)
		if song.ThumbnailURL == "" {
			song.ThumbnailURL = e.thumbnailURL
		}
	}
	song.Title = mostFrequent(titles)
	song.Artist = mostFrequent(artists)

	byKey := make(map[string]string, len(resp.links))
	for _, l := range resp.links {
		if _, ok := registry.Lookup(l.platform); !ok {
			logger.Debug("Dropping unsupported platform", zap.String("platform_key", l.platform))
			continue
		}
		byKey[l.platform] = l.url
	}

	for _, p := range registry.All() {
		u, ok := byKey[p.Key]
		if !ok {
			logger.Debug("No URL for platform in data", zap.String("platform_key", p.Key))
			continue
		}
		song.PlatformURLs = append(song.PlatformURLs, PlatformURL{
			Key:      p.Key,
			Name:     p.Name,
			URL:      u,
			Priority: p.Priority,
		})
	}

	if len(song.PlatformURLs) == 0 {
		logger.Info("No supported platform in data")
		return NewEmptySongInfo(rawURL)
	}

	return song
}

// mostFrequent returns the most common non-empty value; ties go to the value seen first.
func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}
