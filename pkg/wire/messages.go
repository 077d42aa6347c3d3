package wire

import "github.com/cuemby/balthazar/pkg/types"

// Kind identifies a frame's message type.
type Kind uint8

// Discovery/pairing and task-control kinds (spec.md §4.1 families 2 and 3).
// pkg/legacy's connection-control messages do not use these kinds: they
// travel as newline-delimited JSON with string kinds on their own
// connections.
const (
	KindNodeTypeRequest Kind = iota + 1
	KindNodeTypeAnswer
	KindManagerRequest
	KindManagerAnswer
	KindTasksExecute
	KindTaskStatus
)

func (k Kind) String() string {
	switch k {
	case KindNodeTypeRequest:
		return "NodeTypeRequest"
	case KindNodeTypeAnswer:
		return "NodeTypeAnswer"
	case KindManagerRequest:
		return "ManagerRequest"
	case KindManagerAnswer:
		return "ManagerAnswer"
	case KindTasksExecute:
		return "TasksExecute"
	case KindTaskStatus:
		return "TaskStatus"
	default:
		return "Unknown"
	}
}

// NodeTypeRequestMsg asks a peer to declare its role.
type NodeTypeRequestMsg struct{}

// NodeTypeAnswerMsg answers a NodeTypeRequestMsg.
type NodeTypeAnswerMsg struct {
	NodeType types.NodeType
}

// ManagerRequestMsg asks a Manager peer to accept this node as a Worker.
// WorkerSpecs rides along so the Manager's acceptance policy can weigh
// capacity (SPEC_FULL.md supplemented feature).
type ManagerRequestMsg struct {
	Specs types.WorkerSpecs
}

// ManagerAnswerMsg answers a ManagerRequestMsg.
type ManagerAnswerMsg struct {
	Accepted bool
}

// TasksExecuteMsg dispatches a batch of tasks to a Worker.
type TasksExecuteMsg struct {
	Tasks map[string]types.TaskExecute // keyed by TaskID.String()
}

// TaskStatusMsg reports a task's status back to the Manager.
type TaskStatusMsg struct {
	PeerID string
	TaskID types.TaskID
	Status types.TaskStatus
}
