package feed

// dedupIndex is the set of note ids currently present in the active sequence,
// kept in lock-step with it so arrival dedup is O(1). It tracks top-level ids
// only; repost-target matching is done by the reducer's scan.
type dedupIndex struct {
	ids map[string]struct{}
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{ids: make(map[string]struct{})}
}

func (d *dedupIndex) Has(id string) bool {
	_, ok := d.ids[id]
	return ok
}

func (d *dedupIndex) Add(id string) {
	d.ids[id] = struct{}{}
}

func (d *dedupIndex) AddAll(notes []*Note) {
	for _, n := range notes {
		d.ids[n.ID] = struct{}{}
	}
}

func (d *dedupIndex) Remove(id string) {
	delete(d.ids, id)
}

func (d *dedupIndex) Clear() {
	d.ids = make(map[string]struct{})
}

// Rebuild replaces the member set with exactly the ids of notes. Used when the
// active sequence is replaced wholesale; incremental Add/Remove is used
// otherwise to avoid O(n) rebuilds on every arrival.
func (d *dedupIndex) Rebuild(notes []*Note) {
	d.Clear()
	d.AddAll(notes)
}

func (d *dedupIndex) Len() int {
	return len(d.ids)
}
