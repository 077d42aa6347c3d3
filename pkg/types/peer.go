package types

import "fmt"

// NodeRole is the role a peer plays once discovered (spec.md §3).
type NodeRole int

const (
	NodeRoleUnknown NodeRole = iota
	NodeRoleManager
	NodeRoleWorker
)

func (r NodeRole) String() string {
	switch r {
	case NodeRoleManager:
		return "manager"
	case NodeRoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// WorkerSpecs is a Worker's declared capability vector, immutable for the
// process lifetime (spec.md §3). It rides along on a Worker's
// ManagerRequest so the Manager's acceptance policy can weigh capacity
// rather than a bare boolean (SPEC_FULL.md supplemented feature).
type WorkerSpecs struct {
	CPUCount        uint64
	Memory          uint64 // kilobytes
	NetworkSpeed    uint64 // kilobits/s
	PricePerSecond  uint64
	PricePerKilobit uint64
}

func (s WorkerSpecs) String() string {
	return fmt.Sprintf("cpu=%d mem=%dKB net=%dkbps price=%d/s+%d/kb",
		s.CPUCount, s.Memory, s.NetworkSpeed, s.PricePerSecond, s.PricePerKilobit)
}

// NodeType is the role discovered for a peer, carrying WorkerSpecs when the
// peer is a Worker (spec.md §3: "NodeType ∈ {Manager, Worker(WorkerSpecs)}").
type NodeType struct {
	Role  NodeRole
	Specs *WorkerSpecs // non-nil iff Role == NodeRoleWorker
}

func ManagerNodeType() NodeType { return NodeType{Role: NodeRoleManager} }

func WorkerNodeType(specs WorkerSpecs) NodeType {
	return NodeType{Role: NodeRoleWorker, Specs: &specs}
}

func (t NodeType) String() string {
	if t.Role == NodeRoleWorker && t.Specs != nil {
		return fmt.Sprintf("worker(%s)", t.Specs)
	}
	return t.Role.String()
}
