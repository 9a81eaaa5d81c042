package registry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

func watchStore(t *testing.T, s *Store) <-chan Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	changes := make(chan Change, 64)
	require.NoError(t, s.Watch(ctx, func(c Change) { changes <- c }))
	return changes
}

// waitFor drains changes until one matches, or fails after a timeout.
func waitFor(t *testing.T, changes <-chan Change, match func(Change) bool) Change {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if match(c) {
				return c
			}
		case <-timeout:
			t.Fatal("timed out waiting for registry change")
			return Change{}
		}
	}
}

func TestWatch_ReportsExternalWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(nil))
	changes := watchStore(t, s)

	external := []byte(`[{"name":"Alpha","num_source_schemas":1,"target_schema":"json"}]`)
	require.NoError(t, os.WriteFile(s.Path(), external, 0644))

	want := digestOf(external)
	c := waitFor(t, changes, func(c Change) bool { return c.Digest == want })
	assert.Equal(t, s.Path(), c.Path)
	assert.False(t, c.Removed)
}

func TestWatch_IgnoresOwnSaves(t *testing.T) {
	s := newTestStore(t)
	changes := watchStore(t, s)

	own := map[string]bool{}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save([]project.Project{
			{Name: "Alpha", SourceSchemaCount: i, TargetSchema: "json"},
		}))
		own[s.Digest()] = true
	}

	external := []byte(`[]`)
	require.NoError(t, os.WriteFile(s.Path(), external, 0644))

	want := digestOf(external)
	waitFor(t, changes, func(c Change) bool {
		assert.False(t, own[c.Digest], "own save reported as external")
		return c.Digest == want
	})
}

func TestWatch_ReportsRemoval(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(nil))
	changes := watchStore(t, s)

	require.NoError(t, os.Remove(s.Path()))

	c := waitFor(t, changes, func(c Change) bool { return c.Removed })
	assert.Empty(t, c.Digest)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan Change, 8)
	require.NoError(t, s.Watch(ctx, func(c Change) { changes <- c }))
	cancel()

	// Give the loop a moment to exit before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[]`), 0644))

	select {
	case c := <-changes:
		t.Fatalf("unexpected change after cancel: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	s, err := NewStore("/nonexistent-projreg-dir/projects.json")
	require.NoError(t, err)

	err = s.Watch(context.Background(), func(Change) {})
	assert.Error(t, err)
}
