package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobIDDefinedOnlyWhenNonceSet(t *testing.T) {
	job := &Job{Sender: common.HexToAddress("0xaa")}

	_, ok, err := job.JobID()
	require.NoError(t, err)
	assert.False(t, ok, "job id must be undefined without a nonce")

	job.HasNonce = true
	job.Nonce = 3
	_, ok, err = job.JobID()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobMaxPrice(t *testing.T) {
	job := &Job{
		Addresses:       make([]multiaddr.Multiaddr, 2),
		Timeout:         10,
		MaxWorkerPrice:  3,
		MaxNetworkUsage: 5,
		MaxNetworkPrice: 2,
		Redundancy:      2,
	}

	// redundancy(2) * addresses(2) * (timeout(10)*price(3) + usage(5)*price(2)) = 2*2*(30+10) = 160
	assert.Equal(t, uint64(160), job.MaxPrice())
}

func TestJobZeroArgumentsProducesZeroTasks(t *testing.T) {
	job := &Job{
		Sender:   common.HexToAddress("0xaa"),
		HasNonce: true,
		Nonce:    1,
	}

	tasks, err := job.Tasks()
	require.NoError(t, err)
	assert.Len(t, tasks, 0)
}

func TestJobTasksOneArgumentPerArgument(t *testing.T) {
	job := &Job{
		Sender:    common.HexToAddress("0xaa"),
		HasNonce:  true,
		Nonce:     1,
		Arguments: [][]byte{[]byte("a"), []byte("b"), {}},
	}

	tasks, err := job.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, uint16(i), task.Index)
	}
	assert.NotEqual(t, tasks[0].TaskID.Bytes(), tasks[1].TaskID.Bytes())
}
