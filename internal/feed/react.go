package feed

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoteNotFound is returned when a mutation targets a note that is no
// longer displayed.
var ErrNoteNotFound = errors.New("note not present in column")

// reactionSnapshot captures the state ToggleReaction must restore on failure.
type reactionSnapshot struct {
	myReaction string
	reactions  map[string]int
}

func snapshotReactions(n *Note) reactionSnapshot {
	s := reactionSnapshot{myReaction: n.MyReaction}
	if n.Reactions != nil {
		s.reactions = make(map[string]int, len(n.Reactions))
		for k, v := range n.Reactions {
			s.reactions[k] = v
		}
	}
	return s
}

// ToggleReaction applies the local user's reaction change optimistically and
// persists it through the transport. Toggling the currently-set label removes
// it; toggling a different label switches in one atomic local step (decrement
// old, increment new) so a mid-flight failure always rolls back to a single
// consistent prior state. On persistence failure the prior myReaction and
// reaction counts are restored exactly and the error is returned.
func (c *Controller) ToggleReaction(ctx context.Context, noteID, reaction string) error {
	c.mu.Lock()
	n := c.tl.findNote(noteID)
	if n == nil {
		c.mu.Unlock()
		return fmt.Errorf("toggle reaction %s: %w", noteID, ErrNoteNotFound)
	}
	prior := snapshotReactions(n)

	next := cloneNote(n)
	removing := next.MyReaction == reaction
	if next.MyReaction != "" {
		decReaction(next, next.MyReaction)
		next.MyReaction = ""
	}
	if !removing {
		if next.Reactions == nil {
			next.Reactions = make(map[string]int, 1)
		}
		next.Reactions[reaction]++
		next.MyReaction = reaction
	}
	c.tl.replaceNote(noteID, next)
	c.mu.Unlock()

	err := c.persistReaction(ctx, noteID, prior.myReaction, next.MyReaction)
	if err == nil {
		return nil
	}

	// Roll back to the exact prior snapshot, unless the note went away.
	c.mu.Lock()
	if cur := c.tl.findNote(noteID); cur != nil {
		restored := cloneNote(cur)
		restored.MyReaction = prior.myReaction
		restored.Reactions = prior.reactions
		c.tl.replaceNote(noteID, restored)
	}
	c.mu.Unlock()
	c.log.Warn().Err(err).Str("note_id", noteID).Msg("reaction persist failed, rolled back")
	return fmt.Errorf("toggle reaction %s: %w", noteID, err)
}

// persistReaction issues the transport calls for the transition from prior to
// next reaction label. Runs without the column lock; the network must never
// block the timeline.
func (c *Controller) persistReaction(ctx context.Context, noteID, prior, next string) error {
	if prior != "" {
		if err := c.transport.Unreact(ctx, noteID); err != nil {
			return err
		}
	}
	if next != "" {
		return c.transport.React(ctx, noteID, next)
	}
	return nil
}

func decReaction(n *Note, label string) {
	count, ok := n.Reactions[label]
	if !ok {
		return
	}
	if count <= 1 {
		delete(n.Reactions, label)
		return
	}
	n.Reactions[label] = count - 1
}
