package transcript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "s1", Query: "parent(tom, X).", Answers: []string{"X = bob", "X = liz"}, Duration: 3 * time.Millisecond, At: base},
		{SessionID: "s1", Query: "boom.", Err: "prolog exception: kaboom", Duration: time.Millisecond, At: base.Add(time.Second)},
		{SessionID: "s2", Query: "true.", Answers: []string{"true"}, At: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		id, err := s.Record(ctx, e)
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	want := []Entry{entries[2], entries[1]}
	want[1].Answers = []string{}
	if diff := cmp.Diff(want, got,
		cmpopts.IgnoreFields(Entry{}, "ID"),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionHistoryIsOldestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, q := range []string{"a.", "b.", "c."} {
		_, err := s.Record(ctx, Entry{SessionID: "s", Query: q})
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, Entry{SessionID: "other", Query: "z."})
	require.NoError(t, err)

	got, err := s.Session(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a.", got[0].Query)
	assert.Equal(t, "c.", got[2].Query)
	assert.False(t, got[0].At.IsZero(), "zero timestamps are filled in")
}

func TestRecentLimit(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), Entry{SessionID: "s", Query: "kept."})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept.", got[0].Query)
	assert.Equal(t, path, s.Path())
}
