package chain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	cp, err := OpenCheckpoint(path)
	require.NoError(t, err)
	defer cp.Close()

	block, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)

	require.NoError(t, cp.Save(42))
	block, err = cp.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block)
}

func TestCheckpointSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	cp, err := OpenCheckpoint(path)
	require.NoError(t, err)
	require.NoError(t, cp.Save(7))
	require.NoError(t, cp.Close())

	reopened, err := OpenCheckpoint(path)
	require.NoError(t, err)
	defer reopened.Close()
	block, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), block)
}
