package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	s, err := Open(path)
	require.NoError(t, err)

	_, ok := s.Get("theme")
	assert.False(t, ok)

	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Set("demo-banner-dismissed", "true"))

	reopened, err := Open(path)
	require.NoError(t, err)

	v, ok := reopened.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Remove("absent"))
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))

	reopened, err := Open(path)
	require.NoError(t, err)
	_, ok := reopened.Get("k")
	assert.False(t, ok)
}

func TestStore_FailedWriteKeepsPreviousValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v1"))

	// Путь к файлу становится директорией: rename не сможет ее заменить
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), nil, 0o644))

	err = s.Set("k", "v2")
	require.Error(t, err)

	v, _ := s.Get("k")
	assert.Equal(t, "v1", v)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
