// Package feed implements the real-time feed synchronization engine: per-column
// reconciliation of cached, fetched, and streamed notes into one deduplicated,
// newest-first, memory-bounded timeline.
package feed

import "time"

// Visibility is a note's visibility tag.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityHome      Visibility = "home"
	VisibilityFollowers Visibility = "followers"
	VisibilitySpecified Visibility = "specified"
)

// Attachment is a file attached to a note.
type Attachment struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// PollChoice is one poll option with its running vote count.
type PollChoice struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is an optional poll carried by a note.
type Poll struct {
	Choices  []PollChoice `json:"choices"`
	Multiple bool         `json:"multiple"`
}

// Note is a single feed entry. A note with a RenoteID is a repost wrapper; it
// may carry a denormalized inline copy of the reposted note in Renote.
//
// Once a note enters a timeline it is treated as immutable: all mutation goes
// through copy-on-write in the reducer, so render layers may compare pointers
// to detect change.
type Note struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text,omitempty"`

	RenoteID string `json:"renoteId,omitempty"`
	Renote   *Note  `json:"renote,omitempty"`

	// Reactions maps reaction label to count. Counts are always > 0; a label
	// whose count would drop to zero is removed from the map.
	Reactions map[string]int `json:"reactions,omitempty"`
	// ReactionEmojis caches custom emoji URLs by reaction label.
	ReactionEmojis map[string]string `json:"reactionEmojis,omitempty"`
	// MyReaction is the local user's reaction label, empty if none.
	MyReaction string `json:"myReaction,omitempty"`

	Poll       *Poll        `json:"poll,omitempty"`
	Files      []Attachment `json:"files,omitempty"`
	Visibility Visibility   `json:"visibility,omitempty"`
}

// CaptureID returns the id a live-update capture should target: the reposted
// note for a repost wrapper, the note itself otherwise.
func (n *Note) CaptureID() string {
	if n.RenoteID != "" {
		return n.RenoteID
	}
	return n.ID
}

func cloneNote(n *Note) *Note {
	if n == nil {
		return nil
	}
	out := *n
	if n.Reactions != nil {
		out.Reactions = make(map[string]int, len(n.Reactions))
		for k, v := range n.Reactions {
			out.Reactions[k] = v
		}
	}
	if n.ReactionEmojis != nil {
		out.ReactionEmojis = make(map[string]string, len(n.ReactionEmojis))
		for k, v := range n.ReactionEmojis {
			out.ReactionEmojis[k] = v
		}
	}
	if n.Poll != nil {
		poll := *n.Poll
		poll.Choices = append([]PollChoice(nil), n.Poll.Choices...)
		out.Poll = &poll
	}
	if n.Files != nil {
		out.Files = append([]Attachment(nil), n.Files...)
	}
	out.Renote = cloneNote(n.Renote)
	return &out
}
