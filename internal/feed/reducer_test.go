package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func note(id string) *Note {
	return &Note{ID: id, UserID: "author-" + id}
}

func TestApplyMutationDeleteByID(t *testing.T) {
	notes := []*Note{note("a"), note("b"), note("c")}
	out := applyMutation(notes, MutationEvent{Kind: MutationDeleted, TargetID: "b"}, "me")
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "c", out[1].ID)
}

func TestApplyMutationDeleteRemovesRenoteWrapper(t *testing.T) {
	wrapper := &Note{ID: "w", RenoteID: "orig", Renote: note("orig")}
	notes := []*Note{note("a"), wrapper}
	out := applyMutation(notes, MutationEvent{Kind: MutationDeleted, TargetID: "orig"}, "me")
	require.Len(t, out, 1)
	require.Equal(t, "a", out[0].ID)
}

func TestApplyMutationDeleteMissingReturnsSameSlice(t *testing.T) {
	notes := []*Note{note("a"), note("b")}
	out := applyMutation(notes, MutationEvent{Kind: MutationDeleted, TargetID: "zzz"}, "me")
	require.True(t, &out[0] == &notes[0], "expected the identical slice back")
}

func TestApplyMutationReacted(t *testing.T) {
	n := note("a")
	n.Reactions = map[string]int{"👍": 1}
	notes := []*Note{n}

	out := applyMutation(notes, MutationEvent{
		Kind:         MutationReacted,
		TargetID:     "a",
		Reaction:     "👍",
		ActingUserID: "someone-else",
	}, "me")

	require.Equal(t, 2, out[0].Reactions["👍"])
	require.Equal(t, 1, n.Reactions["👍"], "input note must not be mutated")
	require.NotSame(t, n, out[0])
}

func TestApplyMutationReactedEchoSuppressed(t *testing.T) {
	n := note("a")
	n.Reactions = map[string]int{"👍": 1}
	notes := []*Note{n}

	out := applyMutation(notes, MutationEvent{
		Kind:         MutationReacted,
		TargetID:     "a",
		Reaction:     "👍",
		ActingUserID: "me",
	}, "me")

	require.True(t, &out[0] == &notes[0], "own reaction echo must be a no-op")
	require.Equal(t, 1, n.Reactions["👍"])
}

func TestApplyMutationReactedCachesEmoji(t *testing.T) {
	notes := []*Note{note("a")}
	out := applyMutation(notes, MutationEvent{
		Kind:         MutationReacted,
		TargetID:     "a",
		Reaction:     ":blob:",
		ActingUserID: "other",
		Emoji:        &EmojiRef{Name: ":blob:", URL: "https://example.social/blob.png"},
	}, "me")
	require.Equal(t, 1, out[0].Reactions[":blob:"])
	require.Equal(t, "https://example.social/blob.png", out[0].ReactionEmojis[":blob:"])
}

func TestApplyMutationUnreactedRemovesZeroCount(t *testing.T) {
	n := note("a")
	n.Reactions = map[string]int{"👍": 1}
	notes := []*Note{n}

	out := applyMutation(notes, MutationEvent{
		Kind:         MutationUnreacted,
		TargetID:     "a",
		Reaction:     "👍",
		ActingUserID: "other",
	}, "me")

	require.NotContains(t, out[0].Reactions, "👍", "zero counts are removed, never stored")
	require.Equal(t, 1, n.Reactions["👍"])
}

func TestApplyMutationUnreactedUnknownLabelNoop(t *testing.T) {
	n := note("a")
	notes := []*Note{n}
	out := applyMutation(notes, MutationEvent{
		Kind:         MutationUnreacted,
		TargetID:     "a",
		Reaction:     "🔥",
		ActingUserID: "other",
	}, "me")
	require.Same(t, n, out[0])
}

func TestApplyMutationRenoteWrapperRewrapped(t *testing.T) {
	orig := note("orig")
	orig.Reactions = map[string]int{}
	w1 := &Note{ID: "w1", RenoteID: "orig", Renote: cloneNote(orig)}
	w2 := &Note{ID: "w2", RenoteID: "orig", Renote: cloneNote(orig)}
	notes := []*Note{w1, w2}

	out := applyMutation(notes, MutationEvent{
		Kind:         MutationReacted,
		TargetID:     "orig",
		Reaction:     "👍",
		ActingUserID: "other",
	}, "me")

	require.NotSame(t, w1, out[0])
	require.NotSame(t, w2, out[1])
	require.Equal(t, 1, out[0].Renote.Reactions["👍"])
	require.Equal(t, 1, out[1].Renote.Reactions["👍"])
	// The two wrappers keep independent inline copies.
	require.NotSame(t, out[0].Renote, out[1].Renote)
	require.Empty(t, w1.Renote.Reactions, "original inline copy untouched")
}

func TestApplyMutationPollVoted(t *testing.T) {
	n := note("a")
	n.Poll = &Poll{Choices: []PollChoice{{Text: "yes"}, {Text: "no", Votes: 2}}}
	notes := []*Note{n}

	out := applyMutation(notes, MutationEvent{Kind: MutationPollVoted, TargetID: "a", Choice: 1}, "me")
	require.Equal(t, 3, out[0].Poll.Choices[1].Votes)
	require.Equal(t, 2, n.Poll.Choices[1].Votes)
}

func TestApplyMutationPollVotedOutOfRange(t *testing.T) {
	n := note("a")
	n.Poll = &Poll{Choices: []PollChoice{{Text: "yes"}}}
	notes := []*Note{n}

	for _, choice := range []int{-1, 1, 99} {
		out := applyMutation(notes, MutationEvent{Kind: MutationPollVoted, TargetID: "a", Choice: choice}, "me")
		require.Same(t, n, out[0], "choice %d must be a no-op", choice)
	}
}

func TestApplyMutationPollVotedNoPoll(t *testing.T) {
	n := note("a")
	notes := []*Note{n}
	out := applyMutation(notes, MutationEvent{Kind: MutationPollVoted, TargetID: "a", Choice: 0}, "me")
	require.Same(t, n, out[0])
}

func TestApplyMutationUnchangedElementsKeepIdentity(t *testing.T) {
	a, b, c := note("a"), note("b"), note("c")
	notes := []*Note{a, b, c}

	out := applyMutation(notes, MutationEvent{
		Kind:         MutationReacted,
		TargetID:     "b",
		Reaction:     "👍",
		ActingUserID: "other",
	}, "me")

	require.Same(t, a, out[0])
	require.NotSame(t, b, out[1])
	require.Same(t, c, out[2])
}
