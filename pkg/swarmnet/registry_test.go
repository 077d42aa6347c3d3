package swarmnet

import (
	"testing"

	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeerID(t *testing.T, seed byte) peer.ID {
	t.Helper()
	id, err := peer.Decode("12D3KooWGRweQhfNKoQ7FrxGy8nfeV1hyPRJHXXQ3F7KmLjJrPQR")
	require.NoError(t, err)
	_ = seed
	return id
}

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := testPeerID(t, 1)
	first := r.Add(id)
	second := r.Add(id)
	assert.Same(t, first, second)
}

func TestRegistryManagersFiltersByRole(t *testing.T) {
	r := NewRegistry()
	id := testPeerID(t, 1)
	r.Add(id)
	assert.Empty(t, r.Managers())

	r.SetNodeType(id, types.ManagerNodeType())
	assert.Equal(t, []peer.ID{id}, r.Managers())
}

func TestRegistryRemoveSeversPairing(t *testing.T) {
	r := NewRegistry()
	id := testPeerID(t, 1)
	r.Add(id)
	r.AddPairedWorker(id, id)
	assert.Equal(t, 1, r.WorkerCount(id))

	r.Remove(id)
	_, ok := r.Get(id)
	assert.False(t, ok)
}

func TestDefaultManagerAcceptPolicyRespectsCapacity(t *testing.T) {
	policy := DefaultManagerAcceptPolicy(2)
	assert.True(t, policy("", types.WorkerSpecs{}, 0))
	assert.True(t, policy("", types.WorkerSpecs{}, 1))
	assert.False(t, policy("", types.WorkerSpecs{}, 2))
}
