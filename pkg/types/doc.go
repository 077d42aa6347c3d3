/*
Package types defines the core data structures shared across Balthazar.

This package contains the domain model observed from the chain and carried
over the wire: jobs, tasks, peers and their roles, and the status values a
Worker reports back to its Manager. These types are used by pkg/wire for
serialization, by pkg/chain for decoding on-chain events, by pkg/swarmnet
for peer bookkeeping, and by pkg/node for the dispatch state machine.

# Identifiers

JobID and TaskID are content-derived multihashes (see NewJobID, NewTaskID):

	JobID  = hash(sender ‖ LE16(nonce))
	TaskID = hash(job_id.digest ‖ LE16(index) ‖ argument)

Both are deterministic: recomputing either from the same inputs always
yields the same identifier, which lets any node verify a task's identity
without consulting a third party.

# Thread safety

Types in this package are plain data; callers are responsible for
synchronizing concurrent access. pkg/node and pkg/swarmnet hold these
values behind their own locks.
*/
package types
