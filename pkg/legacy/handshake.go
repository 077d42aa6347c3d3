package legacy

import (
	"fmt"
	"io"
)

// Dial performs the Pode side of the legacy handshake against an already
// connected stream: wait for Connected(id), announce Idle(freeSlots), and
// return the assigned peer id (original_source/balthapode/src/lib.rs
// `swim`).
func Dial(rw io.ReadWriter, freeSlots uint32) (uint64, error) {
	r := NewReader(rw)
	msg, err := r.Next()
	if err != nil {
		return 0, fmt.Errorf("legacy: handshake read: %w", err)
	}
	if msg.Kind != KindConnected {
		return 0, fmt.Errorf("legacy: handshake: expected Connected, got %s", msg)
	}
	if err := Send(rw, Idle(freeSlots)); err != nil {
		return 0, fmt.Errorf("legacy: handshake write: %w", err)
	}
	return msg.PeerID, nil
}

// Accept performs the Cephalo side of the legacy handshake: assign id and
// send Connected(id) (original_source/balthacephalo/src/orchestrator/
// manager.rs `manage`).
func Accept(rw io.ReadWriter, id uint64) error {
	if err := Send(rw, Connected(id)); err != nil {
		return fmt.Errorf("legacy: handshake write: %w", err)
	}
	return nil
}
