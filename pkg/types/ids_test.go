package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobIDIsDeterministic(t *testing.T) {
	sender := common.HexToAddress("0x000000000000000000000000000000000000aa")

	id1, err := NewJobID(sender, 42)
	require.NoError(t, err)
	id2, err := NewJobID(sender, 42)
	require.NoError(t, err)

	assert.Equal(t, id1.Bytes(), id2.Bytes())
	assert.Equal(t, id1.String(), id2.String())
}

func TestNewJobIDDiffersByNonce(t *testing.T) {
	sender := common.HexToAddress("0x000000000000000000000000000000000000aa")

	id1, err := NewJobID(sender, 1)
	require.NoError(t, err)
	id2, err := NewJobID(sender, 2)
	require.NoError(t, err)

	assert.NotEqual(t, id1.Bytes(), id2.Bytes())
}

func TestJobIDRoundTrip(t *testing.T) {
	sender := common.HexToAddress("0x000000000000000000000000000000000000aa")
	id, err := NewJobID(sender, 7)
	require.NoError(t, err)

	decoded, err := JobIDFromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id.Bytes(), decoded.Bytes())
}

func TestNewTaskIDDeterministic(t *testing.T) {
	sender := common.HexToAddress("0x000000000000000000000000000000000000aa")
	job, err := NewJobID(sender, 1)
	require.NoError(t, err)

	t1, err := NewTaskID(job, 0, []byte("2+2"))
	require.NoError(t, err)
	t2, err := NewTaskID(job, 0, []byte("2+2"))
	require.NoError(t, err)
	assert.Equal(t, t1.Bytes(), t2.Bytes())

	// Zero-length argument is valid (spec.md §8 boundary case).
	t3, err := NewTaskID(job, 0, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, t3.Bytes())
}

func TestNewTaskIDVariesByIndexAndArgument(t *testing.T) {
	sender := common.HexToAddress("0x000000000000000000000000000000000000aa")
	job, err := NewJobID(sender, 1)
	require.NoError(t, err)

	byIndex0, err := NewTaskID(job, 0, []byte("x"))
	require.NoError(t, err)
	byIndex1, err := NewTaskID(job, 1, []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, byIndex0.Bytes(), byIndex1.Bytes())

	byArgA, err := NewTaskID(job, 0, []byte("a"))
	require.NoError(t, err)
	byArgB, err := NewTaskID(job, 0, []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, byArgA.Bytes(), byArgB.Bytes())
}
