package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := Open(DriverFile, filepath.Join(dir, "state.toml"))
	require.NoError(t, err)
	sqlite, err := Open(DriverSQLite, filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	memory, err := Open(DriverMemory, "")
	require.NoError(t, err)

	all := map[string]Store{"file": file, "sqlite": sqlite, "memory": memory}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestBackendsShareContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, KeyActiveSegment)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Set(ctx, KeyActiveSegment, "agro"))
			batch := map[string]string{KeyThemePrimaryColor: "#16A34A"}
			batch[KeyConnectionConfigPrefix+"agro"] = `{"endpointUrl":"https://a.example"}`
			batch[KeyConnectionConfigPrefix+"food"] = `{"endpointUrl":"https://f.example"}`
			require.NoError(t, s.SetMany(ctx, batch))
			require.NoError(t, s.Set(ctx, KeyActiveSegment, "food"))

			v, ok, err := s.Get(ctx, KeyActiveSegment)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "food", v)

			keys, err := s.Keys(ctx, KeyConnectionConfigPrefix)
			require.NoError(t, err)
			require.Equal(t, []string{"connectionConfig.agro", "connectionConfig.food"}, keys)

			require.NoError(t, s.Delete(ctx, KeyConnectionConfigPrefix+"agro"))
			require.NoError(t, s.Delete(ctx, "never-set"))
			keys, err = s.Keys(ctx, KeyConnectionConfigPrefix)
			require.NoError(t, err)
			require.Equal(t, []string{"connectionConfig.food"}, keys)

			all, err := s.Keys(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
		})
	}
}

func TestBackendsHonourCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, s.Set(ctx, "k", "v"))

			_, ok, err := s.Get(context.Background(), "k")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("redis", "x")
	require.Error(t, err)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.toml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetMany(ctx, map[string]string{
		KeyActiveSegment:         "health",
		KeyThemeLayoutPriorities: `["patients","dashboard"]`,
	}))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, KeyThemeLayoutPriorities)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `["patients","dashboard"]`, v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("values = [not toml"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = s.Get(ctx, KeyActiveSegment)
	require.ErrorIs(t, err, ErrPersistence)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "read", pe.Op)

	// The first write moves the damaged document aside and starts over.
	require.NoError(t, s.Set(ctx, KeyActiveSegment, "agro"))
	_, err = os.Stat(path + ".corrupt")
	require.NoError(t, err)

	v, ok, err := s.Get(ctx, KeyActiveSegment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "agro", v)
}

func TestFileStoreFailedWriteKeepsPreviousValues(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.toml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyActiveSegment, "agro"))

	// Replace the parent directory with a file so the next write fails.
	require.NoError(t, os.Rename(dir, dir+".moved"))
	t.Cleanup(func() { _ = os.RemoveAll(dir + ".moved") })
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))
	t.Cleanup(func() { _ = os.Remove(dir) })

	err = s.Set(ctx, KeyActiveSegment, "food")
	require.ErrorIs(t, err, ErrPersistence)

	v, _, err := s.Get(ctx, KeyActiveSegment)
	require.NoError(t, err)
	require.Equal(t, "agro", v)
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	err := s.Set(context.Background(), "k", "v")
	require.ErrorIs(t, err, ErrPersistence)
}
