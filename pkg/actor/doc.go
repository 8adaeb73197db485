// Package actor provides a minimal cooperative task scheduler: a single
// goroutine reads closures off a mailbox channel and runs them to
// completion, one at a time, before reading the next. Anything dispatched
// onto the same Task never executes concurrently with anything else
// dispatched onto it, which is what lets callers reason about invariants
// without locks.
package actor
