// Package legacy carries the message shapes of the direct-TCP
// connection-control protocol spoken by the pre-swarm `cephalo` (manager)
// and `pode` (worker) pipeline (spec.md §4.1, §9). It is kept only as a
// wire-compatibility contract: the `cephalo`/`pode` CLI subcommands dial
// a raw net.Conn and speak these messages, but neither drives an
// orchestrator: after the handshake a connection only exchanges Ping/Pong
// (and Idle/Disconnect reports) until it closes, and no task is dispatched
// over it.
package legacy
