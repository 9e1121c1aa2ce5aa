package feed

// applyMutation applies a live mutation event to a newest-first note sequence
// and returns the resulting sequence. The input is never modified: changed
// notes are replaced by copies, unchanged notes keep their identity, and the
// original slice is returned untouched when nothing matched.
//
// Deletion removes every note whose id or repost-target id equals the target.
// Reaction and poll mutations resolve the repost-wrapper indirection: when the
// target is the reposted note and the wrapper carries an inline copy, the copy
// is mutated and rewrapped so independent reposts of the same note never alias.
func applyMutation(notes []*Note, ev MutationEvent, localUserID string) []*Note {
	if ev.Kind == MutationDeleted {
		return removeMatching(notes, ev.TargetID)
	}

	var out []*Note
	for i, n := range notes {
		next := applyToNote(n, ev, localUserID)
		if next == n {
			continue
		}
		if out == nil {
			out = make([]*Note, len(notes))
			copy(out, notes)
		}
		out[i] = next
	}
	if out == nil {
		return notes
	}
	return out
}

// removeMatching drops notes matching the target id directly or via their
// repost-target id. Returns the original slice when nothing matched.
func removeMatching(notes []*Note, targetID string) []*Note {
	matched := false
	for _, n := range notes {
		if n.ID == targetID || n.RenoteID == targetID {
			matched = true
			break
		}
	}
	if !matched {
		return notes
	}
	out := make([]*Note, 0, len(notes)-1)
	for _, n := range notes {
		if n.ID == targetID || n.RenoteID == targetID {
			continue
		}
		out = append(out, n)
	}
	return out
}

// applyToNote returns the note with the event applied, or the same pointer
// when the event does not touch it.
func applyToNote(n *Note, ev MutationEvent, localUserID string) *Note {
	if n.ID == ev.TargetID {
		return mutateNote(n, ev, localUserID)
	}
	if n.RenoteID == ev.TargetID && n.Renote != nil {
		inner := mutateNote(n.Renote, ev, localUserID)
		if inner == n.Renote {
			return n
		}
		wrapper := *n
		wrapper.Renote = inner
		return &wrapper
	}
	return n
}

func mutateNote(n *Note, ev MutationEvent, localUserID string) *Note {
	switch ev.Kind {
	case MutationReacted:
		if ev.ActingUserID == localUserID {
			// Already applied by the optimistic path; suppress the echo.
			return n
		}
		out := cloneNote(n)
		if out.Reactions == nil {
			out.Reactions = make(map[string]int, 1)
		}
		out.Reactions[ev.Reaction]++
		if ev.Emoji != nil && ev.Emoji.URL != "" {
			if out.ReactionEmojis == nil {
				out.ReactionEmojis = make(map[string]string, 1)
			}
			out.ReactionEmojis[ev.Emoji.Name] = ev.Emoji.URL
		}
		return out

	case MutationUnreacted:
		if ev.ActingUserID == localUserID {
			return n
		}
		count, ok := n.Reactions[ev.Reaction]
		if !ok {
			return n
		}
		out := cloneNote(n)
		if count <= 1 {
			delete(out.Reactions, ev.Reaction)
		} else {
			out.Reactions[ev.Reaction] = count - 1
		}
		return out

	case MutationPollVoted:
		if n.Poll == nil || ev.Choice < 0 || ev.Choice >= len(n.Poll.Choices) {
			// Upstream inconsistency, not a user-facing failure.
			return n
		}
		out := cloneNote(n)
		out.Poll.Choices[ev.Choice].Votes++
		return out
	}
	return n
}
