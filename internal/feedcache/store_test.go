package feedcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbraaten/notefeed/internal/feed"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	notes := []*feed.Note{
		{ID: "b", UserID: "u1", CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), Reactions: map[string]int{"👍": 2}},
		{ID: "a", UserID: "u2", CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, s.Save(ctx, "home", notes))

	loaded, err := s.LoadCached(ctx, "home", 50)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "b", loaded[0].ID, "order is preserved newest-first")
	require.Equal(t, 2, loaded[0].Reactions["👍"])
	require.Equal(t, "a", loaded[1].ID)
}

func TestLoadUnknownFeedReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	loaded, err := s.LoadCached(context.Background(), "nope", 50)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestSaveReplacesPreviousHead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "home", []*feed.Note{{ID: "old"}}))
	require.NoError(t, s.Save(ctx, "home", []*feed.Note{{ID: "new"}}))

	loaded, err := s.LoadCached(ctx, "home", 50)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "new", loaded[0].ID)
}

func TestFeedKeysAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "home", []*feed.Note{{ID: "h"}}))
	require.NoError(t, s.Save(ctx, "local", []*feed.Note{{ID: "l"}}))

	home, err := s.LoadCached(ctx, "home", 50)
	require.NoError(t, err)
	require.Equal(t, "h", home[0].ID)

	local, err := s.LoadCached(ctx, "local", 50)
	require.NoError(t, err)
	require.Equal(t, "l", local[0].ID)
}

func TestSaveCapsPerFeed(t *testing.T) {
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "cache.db"), MaxPerFeed: 3})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	notes := []*feed.Note{{ID: "e"}, {ID: "d"}, {ID: "c"}, {ID: "b"}, {ID: "a"}}
	require.NoError(t, s.Save(ctx, "home", notes))

	loaded, err := s.LoadCached(ctx, "home", 50)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	require.Equal(t, "e", loaded[0].ID, "cap keeps the newest entries")
}

func TestMalformedEntryFailsLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_cache (feed_key, position, note_id, payload, saved_at)
		VALUES ('home', 0, 'x', '{not json', '2026-02-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = s.LoadCached(ctx, "home", 50)
	require.Error(t, err, "caller treats this as no cache available")
}
