package legacy

import (
	"fmt"
)

// Kind tags the Connection-control message family of spec.md §4.1:
// "Connect(pid), ConnectAck, ConnectCancel, Vote(u32), Ping, Pong,
// Disconnect, Disconnected(id), Connected(id), Idle(n), Hello(s)".
type Kind string

const (
	KindConnect        Kind = "Connect"
	KindConnectAck     Kind = "ConnectAck"
	KindConnectCancel  Kind = "ConnectCancel"
	KindVote           Kind = "Vote"
	KindPing           Kind = "Ping"
	KindPong           Kind = "Pong"
	KindDisconnect     Kind = "Disconnect"
	KindDisconnected   Kind = "Disconnected"
	KindConnected      Kind = "Connected"
	KindIdle           Kind = "Idle"
	KindHello          Kind = "Hello"
)

// Message is the Go shape of the Rust `balthmessage::Message` enum: a
// tagged union keyed by Kind, with only the field(s) relevant to that
// variant populated (original_source/balthapode/src/lib.rs,
// original_source/balthacephalo/src/orchestrator/manager.rs).
type Message struct {
	Kind Kind

	PeerID uint64 // Connect, Connected, Disconnected
	Vote   uint32 // Vote
	Idle   uint32 // Idle: number of free execution slots
	Text   string // Hello
}

func Connect(peerID uint64) Message       { return Message{Kind: KindConnect, PeerID: peerID} }
func ConnectAck() Message                 { return Message{Kind: KindConnectAck} }
func ConnectCancel() Message              { return Message{Kind: KindConnectCancel} }
func Vote(v uint32) Message               { return Message{Kind: KindVote, Vote: v} }
func Ping() Message                       { return Message{Kind: KindPing} }
func Pong() Message                       { return Message{Kind: KindPong} }
func Disconnect() Message                 { return Message{Kind: KindDisconnect} }
func Disconnected(peerID uint64) Message  { return Message{Kind: KindDisconnected, PeerID: peerID} }
func Connected(peerID uint64) Message     { return Message{Kind: KindConnected, PeerID: peerID} }
func Idle(freeSlots uint32) Message       { return Message{Kind: KindIdle, Idle: freeSlots} }
func Hello(text string) Message           { return Message{Kind: KindHello, Text: text} }

func (m Message) String() string {
	switch m.Kind {
	case KindConnect:
		return fmt.Sprintf("Connect(%d)", m.PeerID)
	case KindConnected:
		return fmt.Sprintf("Connected(%d)", m.PeerID)
	case KindDisconnected:
		return fmt.Sprintf("Disconnected(%d)", m.PeerID)
	case KindVote:
		return fmt.Sprintf("Vote(%d)", m.Vote)
	case KindIdle:
		return fmt.Sprintf("Idle(%d)", m.Idle)
	case KindHello:
		return fmt.Sprintf("Hello(%q)", m.Text)
	default:
		return string(m.Kind)
	}
}
