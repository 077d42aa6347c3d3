package swarmnet

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/cuemby/balthazar/pkg/wire"
	"github.com/libp2p/go-libp2p/core/peer"
)

// dispatch handles one inbound envelope and, for request/answer kinds,
// returns the reply to write back on the same substream. handled is
// false for one-way notifications (TasksExecute, TaskStatus), which are
// instead pushed onto the event channel for pkg/node.
func (s *Host) dispatch(from peer.ID, env wire.Envelope) (wire.Envelope, bool) {
	switch env.Kind {
	case wire.KindNodeTypeRequest:
		return s.answerNodeType(env)

	case wire.KindNodeTypeAnswer:
		var msg wire.NodeTypeAnswerMsg
		if err := wire.Decode(env, &msg); err != nil {
			s.logProtocolError(from, err)
			return wire.Envelope{}, false
		}
		s.registry.SetNodeType(from, msg.NodeType)
		if msg.NodeType.Role == types.NodeRoleManager {
			s.events <- Event{Kind: EventManagerNew, PeerID: from}
		}
		return wire.Envelope{}, false

	case wire.KindManagerRequest:
		return s.answerManagerRequest(from, env)

	case wire.KindTasksExecute:
		var msg wire.TasksExecuteMsg
		if err := wire.Decode(env, &msg); err != nil {
			s.logProtocolError(from, err)
			return wire.Envelope{}, false
		}
		s.events <- Event{Kind: EventTasksExecute, PeerID: from, Tasks: msg.Tasks}
		return wire.Envelope{}, false

	case wire.KindTaskStatus:
		var msg wire.TaskStatusMsg
		if err := wire.Decode(env, &msg); err != nil {
			s.logProtocolError(from, err)
			return wire.Envelope{}, false
		}
		s.events <- Event{Kind: EventTaskStatus, PeerID: from, TaskID: msg.TaskID, Status: msg.Status}
		return wire.Envelope{}, false

	default:
		s.logProtocolError(from, fmt.Errorf("unexpected kind %s", env.Kind))
		return wire.Envelope{}, false
	}
}

func (s *Host) logProtocolError(from peer.ID, err error) {
	log.WithSubsystem(log.SubsystemSwarm).Warn(fmt.Sprintf("swarmnet: protocol error from %s: %v", from, err))
}

// requestNodeType asks a newly connected peer to declare its role
// (spec.md §4.3 "Role discovery"). Failure or timeout leaves the role
// unset; the peer is simply never used for dispatch.
func (s *Host) requestNodeType(to peer.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env, err := wire.NewEnvelope(wire.KindNodeTypeRequest, wire.NodeTypeRequestMsg{})
	if err != nil {
		return
	}
	reply, err := s.request(ctx, to, env)
	if err != nil {
		log.WithSubsystem(log.SubsystemSwarm).Warn(fmt.Sprintf("swarmnet: role discovery of %s failed: %v", to, err))
		return
	}
	var msg wire.NodeTypeAnswerMsg
	if err := wire.Decode(reply, &msg); err != nil {
		s.logProtocolError(to, err)
		return
	}
	s.registry.SetNodeType(to, msg.NodeType)
	if msg.NodeType.Role == types.NodeRoleManager {
		s.events <- Event{Kind: EventManagerNew, PeerID: to}
	}
}

func (s *Host) answerNodeType(env wire.Envelope) (wire.Envelope, bool) {
	nt := s.ownNodeType
	reply, err := wire.Reply(env, wire.KindNodeTypeAnswer, wire.NodeTypeAnswerMsg{NodeType: nt})
	if err != nil {
		return wire.Envelope{}, false
	}
	return reply, true
}

// ManagerAcceptPolicy decides whether a Manager accepts an incoming
// ManagerRequest from a prospective Worker. The default (spec.md §4.3) is
// "accept if the Manager has capacity for another worker".
type ManagerAcceptPolicy func(from peer.ID, specs types.WorkerSpecs, currentWorkers int) bool

// DefaultManagerAcceptPolicy accepts while under capacity.
func DefaultManagerAcceptPolicy(capacity int) ManagerAcceptPolicy {
	return func(_ peer.ID, _ types.WorkerSpecs, currentWorkers int) bool {
		return currentWorkers < capacity
	}
}

func (s *Host) answerManagerRequest(from peer.ID, env wire.Envelope) (wire.Envelope, bool) {
	var msg wire.ManagerRequestMsg
	if err := wire.Decode(env, &msg); err != nil {
		s.logProtocolError(from, err)
		return wire.Envelope{}, false
	}

	accepted := false
	if s.acceptPolicy != nil {
		accepted = s.acceptPolicy(from, msg.Specs, s.registry.WorkerCount(s.ID()))
	}
	if accepted {
		s.registry.AddPairedWorker(s.ID(), from)
		s.events <- Event{Kind: EventWorkerNew, PeerID: from}
	}

	reply, err := wire.Reply(env, wire.KindManagerAnswer, wire.ManagerAnswerMsg{Accepted: accepted})
	if err != nil {
		return wire.Envelope{}, false
	}
	return reply, true
}

// RequestManager sends a ManagerRequest to a candidate Manager peer and
// reports whether it was accepted (spec.md §4.3 "Manager pairing (Worker
// side)"). The caller enforces manager_check_interval/manager_timeout and
// "accept only the first accepted=true answer".
func (s *Host) RequestManager(ctx context.Context, to peer.ID, specs types.WorkerSpecs) (bool, error) {
	env, err := wire.NewEnvelope(wire.KindManagerRequest, wire.ManagerRequestMsg{Specs: specs})
	if err != nil {
		return false, err
	}
	reply, err := s.request(ctx, to, env)
	if err != nil {
		return false, err
	}
	var msg wire.ManagerAnswerMsg
	if err := wire.Decode(reply, &msg); err != nil {
		return false, err
	}
	return msg.Accepted, nil
}

// SendTasksExecute dispatches a batch of tasks to a paired Worker.
func (s *Host) SendTasksExecute(ctx context.Context, to peer.ID, tasks map[string]types.TaskExecute) error {
	env, err := wire.NewEnvelope(wire.KindTasksExecute, wire.TasksExecuteMsg{Tasks: tasks})
	if err != nil {
		return err
	}
	return s.notify(ctx, to, env)
}

// SendTaskStatus reports a task's status to the Worker's current Manager.
func (s *Host) SendTaskStatus(ctx context.Context, to peer.ID, taskID types.TaskID, status types.TaskStatus) error {
	env, err := wire.NewEnvelope(wire.KindTaskStatus, wire.TaskStatusMsg{PeerID: s.ID().String(), TaskID: taskID, Status: status})
	if err != nil {
		return err
	}
	return s.notify(ctx, to, env)
}
