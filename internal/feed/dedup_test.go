package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupIndexIncremental(t *testing.T) {
	d := newDedupIndex()
	d.AddAll([]*Note{note("a"), note("b")})
	require.True(t, d.Has("a"))
	require.True(t, d.Has("b"))
	require.False(t, d.Has("c"))

	d.Remove("a")
	require.False(t, d.Has("a"))
	require.Equal(t, 1, d.Len())
}

func TestDedupIndexRebuild(t *testing.T) {
	d := newDedupIndex()
	d.AddAll([]*Note{note("a"), note("b")})
	d.Rebuild([]*Note{note("c")})
	require.False(t, d.Has("a"))
	require.True(t, d.Has("c"))
	require.Equal(t, 1, d.Len())
}

func TestTimelineIndexMirrorsActive(t *testing.T) {
	tl := newTimeline(500)
	tl.replace([]*Note{note("a"), note("b")})
	tl.prependActive([]*Note{note("c")})
	tl.appendActive([]*Note{note("d")})
	tl.apply(MutationEvent{Kind: MutationDeleted, TargetID: "b"}, "me")

	require.Equal(t, []string{"c", "a", "d"}, activeIDs(tl))
	require.Equal(t, len(tl.active), tl.index.Len())
	for _, n := range tl.active {
		require.True(t, tl.index.Has(n.ID))
	}
}

func TestTimelineTruncationDropsTailFromIndex(t *testing.T) {
	tl := newTimeline(3)
	tl.replace([]*Note{note("c"), note("b"), note("a")})
	tl.prependActive([]*Note{note("e"), note("d")})

	require.Equal(t, []string{"e", "d", "c"}, activeIDs(tl))
	require.Equal(t, 3, tl.index.Len())
	require.False(t, tl.index.Has("a"))
	require.False(t, tl.index.Has("b"))
}

func TestTimelineDeleteDropsWrapperIDFromIndex(t *testing.T) {
	tl := newTimeline(500)
	wrapper := &Note{ID: "w", RenoteID: "orig", Renote: note("orig")}
	tl.replace([]*Note{wrapper, note("a")})

	tl.apply(MutationEvent{Kind: MutationDeleted, TargetID: "orig"}, "me")
	require.Equal(t, []string{"a"}, activeIDs(tl))
	require.False(t, tl.index.Has("w"))
	require.Equal(t, 1, tl.index.Len())
}
