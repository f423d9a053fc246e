package core

import (
	"odeslibot/pkg/musiclink"
)

// Resolution pairs a found link with its lookup result.
type Resolution struct {
	Link musiclink.FoundLink
	Song *musiclink.SongInfo
	Err  error
}

// Outcome is the decision taken for one message or inline query.
type Outcome int

const (
	// OutcomeReply means a reply with song details is sent.
	OutcomeReply Outcome = iota
	// OutcomeSkipped means the message carried the skip mark.
	OutcomeSkipped
	// OutcomeNoLinks means no supported link was found.
	OutcomeNoLinks
	// OutcomeNotFound means every link was unknown to the resolution service.
	OutcomeNotFound
	// OutcomeFailed means every link failed for reasons other than not found.
	OutcomeFailed
	// OutcomeNothingNew means no song gained links beyond the one already posted.
	OutcomeNothingNew
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReply:
		return "reply"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoLinks:
		return "no_links"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	case OutcomeNothingNew:
		return "nothing_new"
	default:
		return "unknown"
	}
}

// Decide classifies resolutions before merging. A mix of not-found and other
// failures counts as a failure.
func Decide(resolutions []Resolution) Outcome {
	if len(resolutions) == 0 {
		return OutcomeNoLinks
	}

	allNotFound := true
	for _, r := range resolutions {
		if r.Song.Resolved() {
			return OutcomeReply
		}
		if musiclink.KindOf(r.Err) != musiclink.NotFound {
			allNotFound = false
		}
	}

	if allNotFound {
		return OutcomeNotFound
	}
	return OutcomeFailed
}

// HasNewLinks reports whether any merged song offers more than one platform link.
func HasNewLinks(songs []*musiclink.SongInfo) bool {
	for _, s := range songs {
		if len(s.PlatformURLs) > 1 {
			return true
		}
	}
	return false
}

// Songs returns the songs of resolutions in order.
func Songs(resolutions []Resolution) []*musiclink.SongInfo {
	songs := make([]*musiclink.SongInfo, 0, len(resolutions))
	for _, r := range resolutions {
		songs = append(songs, r.Song)
	}
	return songs
}
