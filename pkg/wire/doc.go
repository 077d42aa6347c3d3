/*
Package wire implements Balthazar's message codec and framing (spec.md
§4.1, component C1).

A single framed transport carries one of several logically typed messages.
Each frame is a one-byte message kind, a 4-byte big-endian length prefix,
and a JSON-encoded body:

	+------+-----------------+------------------+
	| kind | length (uint32) | body (length bytes) |
	+------+-----------------+------------------+

This mirrors the framing used by the retrieved libp2p compute-protocol
example (type byte + length-prefix + JSON body over a network.Stream) — see
DESIGN.md for the grounding and the rationale for not generating a
protobuf schema.

Messages split into three families per spec.md §4.1:

  - Connection-control: used only by the legacy direct-TCP path (pkg/legacy).
  - Discovery/pairing: NodeTypeRequest, NodeTypeAnswer, ManagerRequest,
    ManagerAnswer — handled by pkg/swarmnet.
  - Task control: TasksExecute, TaskStatus — handled by pkg/swarmnet and
    pkg/node.

Every outgoing request carries a correlation id (CorrelationID) that
responses echo back; pkg/swarmnet reads each answer from the substream
its request was sent on and does not inspect the id. Unknown or malformed frames return a
*ProtocolError and must terminate only the substream that produced them,
never the underlying connection (spec.md §4.1, §8 invariant 6 / scenario
S6).
*/
package wire
