package swarmnet

import (
	"context"
	"time"

	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// RunManagerDiscovery is the Worker-side pairing loop (spec.md §4.3
// "Manager pairing (Worker side)"): every checkInterval, while unpaired,
// pick one candidate Manager without a current pairing and issue a
// ManagerRequest. The first ManagerAnswer{accepted: true} received
// within timeout wins; subsequent offers are rejected. Call this once for
// the lifetime of a Worker process: it starts its own goroutine and
// returns the channel on which each accepted Manager is sent.
func (s *Host) RunManagerDiscovery(ctx context.Context, specs types.WorkerSpecs, checkInterval, timeout time.Duration) <-chan peer.ID {
	paired := make(chan peer.ID, 1)

	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, ok := s.PairedManager(); ok {
					continue // already paired; PairedManager clears itself on disconnect
				}
				candidate, ok := s.pickManagerCandidate()
				if !ok {
					continue
				}
				reqCtx, cancel := context.WithTimeout(ctx, timeout)
				accepted, err := s.RequestManager(reqCtx, candidate, specs)
				cancel()
				s.registry.MarkManagerChecked(candidate, time.Now())
				if err != nil {
					log.WithSubsystem(log.SubsystemWorker).Warn("swarmnet: manager request failed: " + err.Error())
					continue
				}
				if accepted {
					s.SetPairedManager(candidate)
					paired <- candidate
				}
			}
		}
	}()

	return paired
}

// pickManagerCandidate returns the known Manager peer with the oldest
// LastManagerCheck. It does not skip peers asked within the check
// interval; only the discovery loop's ticker paces the requests.
func (s *Host) pickManagerCandidate() (peer.ID, bool) {
	candidates := s.registry.Managers()
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	bestTime := time.Now()
	for _, id := range candidates {
		rec, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		if rec.LastManagerCheck.Before(bestTime) {
			best, bestTime = id, rec.LastManagerCheck
		}
	}
	return best, true
}
