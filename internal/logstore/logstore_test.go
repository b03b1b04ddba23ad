package logstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/models"
)

func TestStore_AppendAndLoadAll(t *testing.T) {
	s, err := New(t.TempDir(), 10, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Append(models.LogChunk{
		Service:   "mongodb",
		Lines:     []string{"started", "listening"},
		FetchedAt: time.Now().UTC(),
	}))
	time.Sleep(2 * time.Millisecond) // distinct timestamped filenames
	require.NoError(t, s.Append(models.LogChunk{
		Service: "ollama",
		Lines:   []string{"model loaded"},
	}))

	chunks, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "mongodb", chunks[0].Service)
	assert.Equal(t, "ollama", chunks[1].Service)
	assert.Equal(t, 2, s.Count())
}

func TestStore_LoadAllDoesNotConsume(t *testing.T) {
	s, err := New(t.TempDir(), 10, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Append(models.LogChunk{Service: "mongodb"}))

	_, err = s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(), "loading must not remove stored chunks")
}

func TestStore_CorruptedChunkIsRemoved(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000000T000000.000000.json"), []byte("{broken"), 0640))
	require.NoError(t, s.Append(models.LogChunk{Service: "mongodb"}))

	chunks, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, s.Count())
}

func TestStore_SizeCapDropsOldest(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 0, zap.NewNop()) // zero cap forces a drop on every append
	require.NoError(t, err)

	require.NoError(t, s.Append(models.LogChunk{Service: "first"}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Append(models.LogChunk{Service: "second"}))

	chunks, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "second", chunks[0].Service)
}
