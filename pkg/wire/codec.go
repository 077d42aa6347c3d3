package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// MaxFrameSize bounds a single frame's body so a malformed length prefix
// can never force an unbounded allocation.
const MaxFrameSize = 64 << 20 // 64MiB, room for a dispatched WASM program

// ProtocolError reports a framing or decoding failure on a single
// substream. Per spec.md §8 invariant 6 / scenario S6, a ProtocolError
// must only ever terminate the substream that produced it, never the
// underlying connection.
type ProtocolError struct {
	Kind Kind
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wire: protocol error on %s frame: %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Envelope is the unit exchanged over a substream: a typed kind, a
// correlation id an answer must echo back, and a JSON body.
type Envelope struct {
	Kind          Kind
	CorrelationID string
	Body          json.RawMessage
}

// NewEnvelope marshals body and stamps a fresh correlation id.
func NewEnvelope(kind Kind, body any) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: marshal %s body: %w", kind, err)
	}
	return Envelope{Kind: kind, CorrelationID: uuid.NewString(), Body: raw}, nil
}

// Reply builds an answer envelope carrying the same correlation id as req,
// so the peer awaiting a response on req.CorrelationID can match it.
func Reply(req Envelope, kind Kind, body any) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: marshal %s reply body: %w", kind, err)
	}
	return Envelope{Kind: kind, CorrelationID: req.CorrelationID, Body: raw}, nil
}

// wireHeader is the JSON sidecar carrying the correlation id; kept
// separate from the typed message body so callers don't need to thread
// CorrelationID through every *Msg struct.
type wireHeader struct {
	CorrelationID string          `json:"cid"`
	Body          json.RawMessage `json:"body"`
}

// WriteEnvelope writes one frame: kind byte, 4-byte big-endian length,
// then the JSON-encoded header+body.
func WriteEnvelope(w io.Writer, env Envelope) error {
	payload, err := json.Marshal(wireHeader{CorrelationID: env.CorrelationID, Body: env.Body})
	if err != nil {
		return &ProtocolError{Kind: env.Kind, Err: fmt.Errorf("encode header: %w", err)}
	}
	if len(payload) > MaxFrameSize {
		return &ProtocolError{Kind: env.Kind, Err: fmt.Errorf("frame of %d bytes exceeds max %d", len(payload), MaxFrameSize)}
	}

	var header [5]byte
	header[0] = byte(env.Kind)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadEnvelope reads one frame. io.EOF propagates unwrapped so callers can
// distinguish a clean stream close from a mid-frame failure.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Envelope{}, io.EOF
		}
		return Envelope{}, fmt.Errorf("wire: read frame header: %w", err)
	}

	kind := Kind(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxFrameSize {
		return Envelope{}, &ProtocolError{Kind: kind, Err: fmt.Errorf("declared length %d exceeds max %d", length, MaxFrameSize)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, &ProtocolError{Kind: kind, Err: fmt.Errorf("read frame body: %w", err)}
	}

	var hdr wireHeader
	if err := json.Unmarshal(payload, &hdr); err != nil {
		return Envelope{}, &ProtocolError{Kind: kind, Err: fmt.Errorf("decode header: %w", err)}
	}
	return Envelope{Kind: kind, CorrelationID: hdr.CorrelationID, Body: hdr.Body}, nil
}

// Decode unmarshals an envelope's body into v, wrapping any failure as a
// *ProtocolError tagged with the envelope's kind.
func Decode(env Envelope, v any) error {
	if err := json.Unmarshal(env.Body, v); err != nil {
		return &ProtocolError{Kind: env.Kind, Err: err}
	}
	return nil
}
