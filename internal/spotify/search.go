// Package spotify finds track links for free-text inline queries.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"odeslibot/pkg/fuzzy"
)

// maxSearchLimit is the largest page the search endpoint serves.
const maxSearchLimit = 50

// Config holds application credentials for the client credentials flow.
type Config struct {
	ClientID     string
	ClientSecret string
	// TokenURL and APIURL override the public endpoints, mostly for tests.
	TokenURL string
	APIURL   string
	// HTTPClient is used for token and API requests when set.
	HTTPClient *http.Client
}

// Searcher looks up tracks by free text. It needs no user login.
type Searcher struct {
	client     *spotify.Client
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

// NewSearcher creates a searcher. Tokens are fetched lazily and refreshed as needed.
func NewSearcher(ctx context.Context, config Config, logger *zap.Logger) (*Searcher, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, errors.New("spotify client ID and secret are required")
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	if config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, config.HTTPClient)
	}
	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if config.APIURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(config.APIURL, "/")+"/"))
	}

	return &Searcher{
		client:     spotify.New(creds.Client(ctx), opts...),
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}, nil
}

// SearchTrackURLs returns links of the best matching tracks, most relevant first.
func (s *Searcher) SearchTrackURLs(ctx context.Context, query string, limit int) ([]string, error) {
	normalized := s.normalizer.NormalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := s.client.Search(ctx, normalized, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		s.logger.Debug("No tracks found", zap.String("query", normalized))
		return nil, nil
	}

	ranked := fuzzy.Rank(s.normalizer, normalized, results.Tracks.Tracks, func(t spotify.FullTrack) (string, string) {
		return artistNames(t.Artists), t.Name
	})

	urls := make([]string, 0, len(ranked))
	for _, t := range ranked {
		if u := t.ExternalURLs["spotify"]; u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
