package swarmnet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/cuemby/balthazar/pkg/wire"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
)

// ProtocolID identifies Balthazar's framed request/response protocol on
// the libp2p multistream negotiation layer (spec.md §4.1).
const ProtocolID = protocol.ID("/balthazar/task-swarm/1.0.0")

// Host wires a libp2p host.Host into the connection handler (C2) and
// swarm behaviour (C3): one substream per request, correlated by
// pkg/wire's correlation id, with the Registry tracking discovered roles
// and pairings.
type Host struct {
	host     host.Host
	registry *Registry
	events   chan Event

	keepAlive    time.Duration
	ownNodeType  types.NodeType
	acceptPolicy ManagerAcceptPolicy

	pairedMu  sync.RWMutex
	pairedMgr *peer.ID // Worker-side: the Manager currently paired with, if any
}

// NewHost constructs a libp2p host bound to listenAddr and registers the
// Balthazar protocol stream handler. keepAlive is the idle-connection
// deadline from spec.md §4.2 (default 10s). ownNodeType is what this node
// answers with on an incoming NodeTypeRequest; acceptPolicy governs
// whether incoming ManagerRequests are accepted (nil on Worker nodes,
// which never receive one).
func NewHost(listenAddr string, keepAlive time.Duration, ownNodeType types.NodeType, acceptPolicy ManagerAcceptPolicy, events chan Event) (*Host, error) {
	addr, err := multiaddr.NewMultiaddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("swarmnet: parse listen_addr %q: %w", listenAddr, err)
	}

	h, err := libp2p.New(
		libp2p.ListenAddrs(addr),
		libp2p.DefaultSecurity,
		libp2p.DefaultTransports,
	)
	if err != nil {
		return nil, fmt.Errorf("swarmnet: create libp2p host: %w", err)
	}

	sh := &Host{
		host:         h,
		registry:     NewRegistry(),
		events:       events,
		keepAlive:    keepAlive,
		ownNodeType:  ownNodeType,
		acceptPolicy: acceptPolicy,
	}
	h.SetStreamHandler(ProtocolID, sh.handleStream)
	h.Network().Notify(sh.notifiee())
	return sh, nil
}

// Close shuts down the underlying libp2p host.
func (s *Host) Close() error { return s.host.Close() }

// ID returns this node's own peer id.
func (s *Host) ID() peer.ID { return s.host.ID() }

// Registry exposes the peer registry for the behaviour layer.
func (s *Host) Registry() *Registry { return s.registry }

// PairedManager returns the Manager this Worker currently believes it is
// paired with, tracked here (rather than in a pairing loop's local
// variable) so a disconnect notification from any source clears it.
func (s *Host) PairedManager() (peer.ID, bool) {
	s.pairedMu.RLock()
	defer s.pairedMu.RUnlock()
	if s.pairedMgr == nil {
		return "", false
	}
	return *s.pairedMgr, true
}

// SetPairedManager records a successful pairing (spec.md §4.3 "accept
// only the first accepted=true answer").
func (s *Host) SetPairedManager(id peer.ID) {
	s.pairedMu.Lock()
	defer s.pairedMu.Unlock()
	s.pairedMgr = &id
}

// clearPairedManagerIfCurrent unsets the pairing, but only if id is still
// the peer we believe we're paired with — a disconnect from some other,
// unrelated peer must not clear an unrelated pairing.
func (s *Host) clearPairedManagerIfCurrent(id peer.ID) {
	s.pairedMu.Lock()
	defer s.pairedMu.Unlock()
	if s.pairedMgr != nil && *s.pairedMgr == id {
		s.pairedMgr = nil
	}
}

// Dial connects to a bootstrap peer address.
func (s *Host) Dial(ctx context.Context, addr multiaddr.Multiaddr) error {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("swarmnet: parse bootstrap addr: %w", err)
	}
	if err := s.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("swarmnet: dial %s: %w", info.ID, err)
	}
	return nil
}

// handleStream is invoked for every inbound substream opened by a peer
// speaking ProtocolID. Per spec.md §4.1, a malformed frame closes only
// this substream, never the underlying connection.
func (s *Host) handleStream(stream network.Stream) {
	defer stream.Close()
	remote := stream.Conn().RemotePeer()
	stream.SetDeadline(time.Now().Add(s.keepAlive))

	env, err := wire.ReadEnvelope(stream)
	if err != nil {
		log.WithSubsystem(log.SubsystemSwarm).Warn(fmt.Sprintf("swarmnet: malformed frame from %s: %v", remote, err))
		stream.Reset()
		return
	}

	reply, handled := s.dispatch(remote, env)
	if !handled {
		return
	}
	if err := wire.WriteEnvelope(stream, reply); err != nil {
		log.WithSubsystem(log.SubsystemSwarm).Warn(fmt.Sprintf("swarmnet: write reply to %s: %v", remote, err))
	}
}

// request opens a fresh outbound substream, writes env, and blocks for the
// single reply — one substream per request, matching the
// OutPendingOpen→OutPendingSend→OutWaitingAnswer→OutReportAnswer handler
// states of spec.md §4.2 without needing a separate state-machine type.
func (s *Host) request(ctx context.Context, to peer.ID, env wire.Envelope) (wire.Envelope, error) {
	stream, err := s.host.NewStream(ctx, to, ProtocolID)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("swarmnet: open stream to %s: %w", to, err)
	}
	defer stream.Close()

	if err := wire.WriteEnvelope(stream, env); err != nil {
		stream.Reset()
		return wire.Envelope{}, err
	}
	reply, err := wire.ReadEnvelope(stream)
	if err != nil {
		stream.Reset()
		return wire.Envelope{}, err
	}
	return reply, nil
}

// notify, one-way: used for TasksExecute and TaskStatus, which don't
// expect a reply envelope on the same substream.
func (s *Host) notify(ctx context.Context, to peer.ID, env wire.Envelope) error {
	stream, err := s.host.NewStream(ctx, to, ProtocolID)
	if err != nil {
		return fmt.Errorf("swarmnet: open stream to %s: %w", to, err)
	}
	defer stream.Close()
	if err := wire.WriteEnvelope(stream, env); err != nil {
		stream.Reset()
		return err
	}
	return nil
}

func (s *Host) notifiee() *network.NotifyBundle {
	return &network.NotifyBundle{
		ConnectedF: func(_ network.Network, conn network.Conn) {
			id := conn.RemotePeer()
			s.registry.Add(id)
			go s.requestNodeType(id)
		},
		DisconnectedF: func(_ network.Network, conn network.Conn) {
			id := conn.RemotePeer()
			s.registry.Remove(id)
			s.clearPairedManagerIfCurrent(id)
			s.events <- Event{Kind: EventPeerDisconnected, PeerID: id}
		},
	}
}
