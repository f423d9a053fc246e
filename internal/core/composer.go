package core

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"odeslibot/internal/chat"
	"odeslibot/internal/i18n"
	"odeslibot/pkg/musiclink"
)

const linkSeparator = " | "

var footnoteRegex = regexp.MustCompile(`\[\d+\]`)

// ReplyInput is everything needed to render a chat reply.
type ReplyInput struct {
	Songs   []*musiclink.SongInfo // Merged, in extraction order.
	Text    string                // Original message text.
	IsGroup bool
	Mention string // Author handle, used in group headers.
	Rich    bool   // Render HTML.
}

// Composer renders replies and inline results.
type Composer struct {
	localizer *i18n.Localizer
}

// NewComposer creates a composer using the given localizer.
func NewComposer(localizer *i18n.Localizer) *Composer {
	return &Composer{localizer: localizer}
}

// Reply renders the chat reply for merged songs.
func (c *Composer) Reply(in ReplyInput) string {
	text := ReplaceWithFootnotes(in.Text, in.Songs)
	linksOnly := strings.TrimSpace(footnoteRegex.ReplaceAllString(text, "")) == ""
	numbered := !(linksOnly && len(in.Songs) == 1)

	lines := make([]string, 0, 2*len(in.Songs)+1)
	if in.IsGroup {
		lines = append(lines, c.header(in, text, linksOnly)+"\n")
	}

	for i, song := range in.Songs {
		prefix := ""
		if numbered {
			prefix = fmt.Sprintf("%d. ", i+1)
		}

		if !song.Resolved() {
			lines = append(lines, prefix+c.escape(firstSource(song), in.Rich))
			continue
		}
		lines = append(lines, prefix+c.songLine(song, in.Rich), c.linkLine(song, in.Rich))
	}

	return strings.Join(lines, "\n")
}

func (c *Composer) header(in ReplyInput, text string, linksOnly bool) string {
	mention := c.escape(in.Mention, in.Rich)
	switch {
	case linksOnly && in.Rich:
		return c.localizer.T("reply.header_links_only", mention)
	case linksOnly:
		return c.localizer.T("reply.header_links_only_plain", mention)
	case in.Rich:
		return c.localizer.T("reply.header", mention, html.EscapeString(text))
	default:
		return c.localizer.T("reply.header_plain", mention, text)
	}
}

// NotFound renders the fixed reply sent when no link could be found.
func (c *Composer) NotFound() string {
	return c.localizer.T("reply.not_found")
}

// Welcome renders the greeting listing supported platforms.
func (c *Composer) Welcome(platformNames []string, rich bool) string {
	if rich {
		return c.localizer.T("bot.welcome", html.EscapeString(strings.Join(platformNames, linkSeparator)))
	}
	return c.localizer.T("bot.welcome_plain", strings.Join(platformNames, linkSeparator))
}

// InlineResults renders one card per resolved song.
func (c *Composer) InlineResults(songs []*musiclink.SongInfo, rich bool) []chat.InlineResult {
	results := make([]chat.InlineResult, 0, len(songs))
	for _, song := range songs {
		if !song.Resolved() {
			continue
		}
		results = append(results, chat.InlineResult{
			ID:           uuid.NewString(),
			Title:        c.songLine(song, false),
			Description:  strings.Join(song.PlatformNames(), linkSeparator),
			ThumbnailURL: song.ThumbnailURL,
			Text:         c.songLine(song, rich) + "\n" + c.linkLine(song, rich),
		})
	}
	return results
}

// InlineNotFound renders the single card offered when no song was found.
func (c *Composer) InlineNotFound() []chat.InlineResult {
	return []chat.InlineResult{{
		ID:          uuid.NewString(),
		Title:       c.localizer.T("inline.not_found_title"),
		Description: c.localizer.T("inline.not_found_description"),
		Text:        c.NotFound(),
	}}
}

func (c *Composer) songLine(song *musiclink.SongInfo, rich bool) string {
	artist, title := song.Artist, song.Title
	if artist == "" {
		artist = c.localizer.T("reply.unknown_artist")
	}
	if title == "" {
		title = c.localizer.T("reply.unknown_title")
	}
	return c.escape(artist, rich) + " - " + c.escape(title, rich)
}

func (c *Composer) linkLine(song *musiclink.SongInfo, rich bool) string {
	parts := make([]string, 0, len(song.PlatformURLs))
	for _, pu := range song.PlatformURLs {
		if rich {
			parts = append(parts, fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(pu.URL), html.EscapeString(pu.Name)))
		} else {
			parts = append(parts, pu.Name+": "+pu.URL)
		}
	}
	return strings.Join(parts, linkSeparator)
}

func (c *Composer) escape(s string, rich bool) string {
	if rich {
		return html.EscapeString(s)
	}
	return s
}

// ReplaceWithFootnotes substitutes every source link of the i-th song with "[i]".
// Longer links are replaced first so a link that prefixes another cannot clobber it.
func ReplaceWithFootnotes(text string, songs []*musiclink.SongInfo) string {
	type footnote struct {
		url   string
		label string
	}
	var notes []footnote
	for i, song := range songs {
		for _, u := range song.SourceURLs {
			notes = append(notes, footnote{url: u, label: fmt.Sprintf("[%d]", i+1)})
		}
	}
	sort.SliceStable(notes, func(a, b int) bool {
		return len(notes[a].url) > len(notes[b].url)
	})

	for _, n := range notes {
		text = strings.ReplaceAll(text, n.url, n.label)
	}
	return text
}

func firstSource(song *musiclink.SongInfo) string {
	if len(song.SourceURLs) == 0 {
		return ""
	}
	return song.SourceURLs[0]
}
