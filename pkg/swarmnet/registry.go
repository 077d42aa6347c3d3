package swarmnet

import (
	"sync"
	"time"

	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerRecord is the registry's per-peer bookkeeping (spec.md §4.3).
type PeerRecord struct {
	ID               peer.ID
	NodeType         *types.NodeType // nil until role discovery completes
	IsManager        bool            // not set by this package; a Worker's pairing is tracked by Host.PairedManager
	PairedWorkers    map[peer.ID]struct{}
	LastManagerCheck time.Time
}

// Registry is the peer map C3 maintains: peer identifier → record.
// It is mutated only by pkg/swarmnet's Host, from its connection
// notifications, stream handlers and pairing loop; these run on separate
// goroutines, so every access goes through mu.
type Registry struct {
	mu    sync.RWMutex
	peers map[peer.ID]*PeerRecord
}

// NewRegistry constructs an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[peer.ID]*PeerRecord)}
}

// Add creates a record for a newly connected peer if one doesn't exist.
func (r *Registry) Add(id peer.ID) *PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.peers[id]; ok {
		return rec
	}
	rec := &PeerRecord{ID: id, PairedWorkers: make(map[peer.ID]struct{})}
	r.peers[id] = rec
	return rec
}

// Remove deletes a peer's record, implicitly severing any pairing
// (spec.md §3 "Peer" lifecycle: disappear on disconnect or timeout).
func (r *Registry) Remove(id peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
}

// Get returns a peer's record, if known.
func (r *Registry) Get(id peer.ID) (*PeerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.peers[id]
	return rec, ok
}

// SetNodeType records a peer's discovered role.
func (r *Registry) SetNodeType(id peer.ID, nt types.NodeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.peers[id]; ok {
		rec.NodeType = &nt
	}
}

// Managers returns the peer ids currently believed to be Managers with
// role known, used by a Worker selecting a pairing candidate.
func (r *Registry) Managers() []peer.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []peer.ID
	for id, rec := range r.peers {
		if rec.NodeType != nil && rec.NodeType.Role == types.NodeRoleManager {
			out = append(out, id)
		}
	}
	return out
}

// MarkManagerChecked stamps the moment a ManagerRequest was last sent to
// id, so the Worker's periodic discovery loop can apply
// manager_check_interval.
func (r *Registry) MarkManagerChecked(id peer.ID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.peers[id]; ok {
		rec.LastManagerCheck = at
	}
}

// AddPairedWorker records that id (a Manager-side view) has accepted
// worker as one of its Workers.
func (r *Registry) AddPairedWorker(id, worker peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.peers[id]; ok {
		rec.PairedWorkers[worker] = struct{}{}
	}
}

// WorkerCount returns how many Workers id currently supervises, used by
// the Manager's default acceptance policy ("accept if capacity for
// another worker").
func (r *Registry) WorkerCount(id peer.ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.peers[id]; ok {
		return len(rec.PairedWorkers)
	}
	return 0
}

// RoleCounts tallies known peers by discovered role, for metrics
// collection ("manager", "worker", "unknown" for role discovery still
// pending).
func (r *Registry) RoleCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, 3)
	for _, rec := range r.peers {
		if rec.NodeType == nil {
			counts["unknown"]++
			continue
		}
		counts[rec.NodeType.Role.String()]++
	}
	return counts
}
