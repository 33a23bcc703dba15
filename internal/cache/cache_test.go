package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ExistsOnlyForRegularFiles(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	path := store.Path("abc123.mp3.mid")
	assert.False(t, store.Exists(path))

	require.NoError(t, os.WriteFile(path, []byte("MThd"), 0o644))
	assert.True(t, store.Exists(path))

	assert.False(t, store.Exists(store.Dir()))
}

func TestStore_StageCommitPublishesAtomically(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	final := store.Path("abc123.mp3.mid")
	staged := store.Stage(final)
	assert.NotEqual(t, final, staged)

	require.NoError(t, os.WriteFile(staged, []byte("MThd..."), 0o644))
	// Artifact must not be visible while staged.
	assert.False(t, store.Exists(final))

	require.NoError(t, store.Commit(staged, final))
	assert.True(t, store.Exists(final))

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_CommitRejectsEmptyStagedFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	final := store.Path("abc123.mp3.mid")
	staged := store.Stage(final)
	require.NoError(t, os.WriteFile(staged, nil, 0o644))

	assert.Error(t, store.Commit(staged, final))
	assert.False(t, store.Exists(final))
}

func TestStore_CommitFailsWithoutStagedFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	final := store.Path("abc123.mp3.mid")
	assert.Error(t, store.Commit(store.Stage(final), final))
}

func TestStore_DiscardRemovesStagedFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	staged := store.Stage(store.Path("abc123.mp3.mid"))
	require.NoError(t, os.WriteFile(staged, []byte("junk"), 0o644))

	store.Discard(staged)
	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))
}

func TestJanitor_SweepExpiresOldArtifacts(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	oldFile := store.Path("old.mp3")
	newFile := store.Path("new.mp3")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("x"), 0o644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	janitor := NewJanitor(store, 24*time.Hour)
	removed, err := janitor.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.Exists(oldFile))
	assert.True(t, store.Exists(newFile))
}

func TestJanitor_SweepRemovesStalePartialsEvenWithoutRetention(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	stale := store.Stage(store.Path("abc123.mp3.mid"))
	fresh := store.Stage(store.Path("def456.mp3.mid"))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	janitor := NewJanitor(store, 0)
	removed, err := janitor.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestJanitor_SweepKeepsArtifactsWithoutRetention(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ancient := store.Path("abc123.mp3")
	require.NoError(t, os.WriteFile(ancient, []byte("x"), 0o644))
	past := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(ancient, past, past))

	janitor := NewJanitor(store, 0)
	removed, err := janitor.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.True(t, store.Exists(ancient))
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
