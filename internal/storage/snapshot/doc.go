// Package snapshot implements the snapshot transfer and persistence engine
// for a partitioned replicated state machine.
//
// A store owns two directories under a partition root:
//
//	snapshots/<id>/            committed, immutable until superseded
//	pending/<id>-<seq>/        in-flight or interrupted reception
//
// A snapshot is taken locally (TransientSnapshot) or received chunk-by-chunk
// from a remote sender (ReceivedSnapshot). Both converge on persist(), which
// verifies the snapshot's integrity and atomically renames its directory
// from pending/ into snapshots/. At most one directory exists under
// snapshots/ at steady state, and its id is monotonically increasing across
// restarts.
//
// All state-mutating operations on a Store are dispatched onto a single
// cooperative task (pkg/actor), so nothing mutates the same store's state
// concurrently.
package snapshot
