package feed

// MutationKind identifies the kind of in-place change a mutation event asks for.
type MutationKind string

const (
	MutationReacted   MutationKind = "reacted"
	MutationUnreacted MutationKind = "unreacted"
	MutationDeleted   MutationKind = "deleted"
	MutationPollVoted MutationKind = "pollVoted"
)

// EmojiRef is optional custom emoji metadata attached to a reaction event.
type EmojiRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MutationEvent is a targeted change pushed over the live channel for a note
// already held in a timeline.
type MutationEvent struct {
	TargetID string       `json:"targetId"`
	Kind     MutationKind `json:"kind"`

	// Reaction and ActingUserID are set for reacted/unreacted. ActingUserID is
	// used to suppress the echo of the local user's own optimistic action.
	Reaction     string    `json:"reaction,omitempty"`
	ActingUserID string    `json:"actingUserId,omitempty"`
	Emoji        *EmojiRef `json:"emoji,omitempty"`

	// Choice is the poll option index for pollVoted.
	Choice int `json:"choice,omitempty"`
}
