package feed

// timeline holds one column's note sequences. active is the rendered,
// newest-first, deduplicated sequence; pending holds live arrivals held back
// while the viewport is scrolled away from the top. The dedup index mirrors
// active's top-level ids exactly.
//
// All methods assume the owner's lock is held; a timeline is owned exclusively
// by one Controller.
type timeline struct {
	active   []*Note
	pending  []*Note
	index    *dedupIndex
	maxItems int
}

func newTimeline(maxItems int) *timeline {
	return &timeline{
		index:    newDedupIndex(),
		maxItems: maxItems,
	}
}

func (t *timeline) newestID() string {
	if len(t.active) == 0 {
		return ""
	}
	return t.active[0].ID
}

func (t *timeline) oldestID() string {
	if len(t.active) == 0 {
		return ""
	}
	return t.active[len(t.active)-1].ID
}

// replace swaps in a whole new active sequence and rebuilds the index.
func (t *timeline) replace(notes []*Note) {
	t.active = append([]*Note(nil), notes...)
	if len(t.active) > t.maxItems {
		t.active = t.active[:t.maxItems]
	}
	t.index.Rebuild(t.active)
}

// prependActive inserts a batch at the head of the active sequence, dropping
// notes already present (by id, against the index and within the batch), and
// truncates the tail to the item cap. Returns how many notes survived dedup.
func (t *timeline) prependActive(batch []*Note) int {
	fresh := make([]*Note, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, n := range batch {
		if t.index.Has(n.ID) {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return 0
	}
	t.active = append(fresh, t.active...)
	t.index.AddAll(fresh)
	t.truncateActive()
	return len(fresh)
}

// prependPending inserts a batch at the head of the pending sequence. Pending
// is deduplicated against active only when it is flushed, not on insert.
func (t *timeline) prependPending(batch []*Note) {
	t.pending = append(append([]*Note(nil), batch...), t.pending...)
	if len(t.pending) > t.maxItems {
		t.pending = t.pending[:t.maxItems]
	}
}

// flushPending moves held-back arrivals into the active sequence, skipping any
// that arrived through another path in the meantime.
func (t *timeline) flushPending() int {
	if len(t.pending) == 0 {
		return 0
	}
	moved := t.prependActive(t.pending)
	t.pending = nil
	return moved
}

// appendActive extends the tail with older pages from backward pagination.
// History growth is exempt from the item cap.
func (t *timeline) appendActive(batch []*Note) int {
	added := 0
	for _, n := range batch {
		if t.index.Has(n.ID) {
			continue
		}
		t.active = append(t.active, n)
		t.index.Add(n.ID)
		added++
	}
	return added
}

// apply runs a mutation event through the reducer and keeps the index in sync
// with deletions.
func (t *timeline) apply(ev MutationEvent, localUserID string) {
	next := applyMutation(t.active, ev, localUserID)
	if ev.Kind == MutationDeleted && len(next) != len(t.active) {
		t.index.Remove(ev.TargetID)
		// A repost wrapper removed because its target was deleted carries its
		// own id in the index.
		for _, n := range t.active {
			if n.RenoteID == ev.TargetID {
				t.index.Remove(n.ID)
			}
		}
	}
	t.active = next
}

// replaceNote swaps a single note by id, preserving order. Used by the
// optimistic mutation path. Returns false when the id is no longer present.
func (t *timeline) replaceNote(id string, n *Note) bool {
	for i, cur := range t.active {
		if cur.ID == id {
			next := make([]*Note, len(t.active))
			copy(next, t.active)
			next[i] = n
			t.active = next
			return true
		}
	}
	return false
}

func (t *timeline) findNote(id string) *Note {
	for _, n := range t.active {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (t *timeline) truncateActive() {
	if len(t.active) <= t.maxItems {
		return
	}
	for _, n := range t.active[t.maxItems:] {
		t.index.Remove(n.ID)
	}
	t.active = t.active[:t.maxItems]
}

func (t *timeline) clear() {
	t.active = nil
	t.pending = nil
	t.index.Clear()
}
