package actor

import (
	"context"
	"fmt"
	"sync"
)

// defaultMailboxSize bounds how many pending closures a Task will buffer
// before Submit blocks the caller. A bound, rather than an unbounded
// channel, keeps a runaway producer from growing memory without limit.
const defaultMailboxSize = 256

// Task is a single cooperative execution context: one goroutine draining a
// mailbox of closures, run one at a time, in submission order.
type Task struct {
	mailbox chan func()
	closeCh chan struct{}
	doneCh  chan struct{}

	closeOnce sync.Once
}

// NewTask starts a Task's goroutine and returns immediately.
func NewTask() *Task {
	t := &Task{
		mailbox: make(chan func(), defaultMailboxSize),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Task) run() {
	defer close(t.doneCh)
	for {
		select {
		case fn := <-t.mailbox:
			fn()
		case <-t.closeCh:
			// Drain whatever is already queued before exiting, so a
			// pending Submit isn't silently dropped by a concurrent Close.
			for {
				select {
				case fn := <-t.mailbox:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues fn to run on the task's goroutine and returns a Future
// that resolves with fn's return value once it has run. Submit itself does
// not block on fn's execution; it only blocks if the mailbox is full.
func Submit[T any](t *Task, fn func() (T, error)) *Future[T] {
	future, complete := NewFuture[T]()

	job := func() {
		v, err := fn()
		complete(v, err)
	}

	select {
	case <-t.closeCh:
		var zero T
		complete(zero, fmt.Errorf("actor: task closed"))
		return future
	default:
	}

	select {
	case t.mailbox <- job:
	case <-t.closeCh:
		var zero T
		complete(zero, fmt.Errorf("actor: task closed"))
	}

	return future
}

// SubmitVoid is Submit for closures with no return value.
func SubmitVoid(t *Task, fn func() error) *Future[struct{}] {
	return Submit(t, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Close signals the task to stop accepting new work after draining what is
// already queued, and blocks until it has, honoring ctx's deadline.
func (t *Task) Close(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.closeCh) })

	select {
	case <-t.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
