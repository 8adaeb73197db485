package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmit_RunsAndResolves(t *testing.T) {
	task := NewTask()
	defer task.Close(context.Background())

	future := Submit(task, func() (int, error) {
		return 42, nil
	})

	v, err := future.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("got %d, want 42", v)
	}
}

func TestSubmit_SerializesExecution(t *testing.T) {
	task := NewTask()
	defer task.Close(context.Background())

	var running atomic.Int32
	var maxConcurrent atomic.Int32

	work := func() (struct{}, error) {
		n := running.Add(1)
		for {
			m := maxConcurrent.Load()
			if n <= m || maxConcurrent.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}

	var futures []*Future[struct{}]
	for i := 0; i < 20; i++ {
		futures = append(futures, Submit(task, work))
	}
	for _, f := range futures {
		f.Get()
	}

	if got := maxConcurrent.Load(); got != 1 {
		t.Errorf("max concurrent executions = %d, want 1", got)
	}
}

func TestSubmit_OrderPreserved(t *testing.T) {
	task := NewTask()
	defer task.Close(context.Background())

	var order []int
	var futures []*Future[struct{}]
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, Submit(task, func() (struct{}, error) {
			order = append(order, i)
			return struct{}{}, nil
		}))
	}
	for _, f := range futures {
		f.Get()
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestTask_CloseDrainsQueuedWork(t *testing.T) {
	task := NewTask()

	future := Submit(task, func() (int, error) {
		return 7, nil
	})

	if err := task.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	v, err := future.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("got %d, want 7", v)
	}
}

func TestTask_SubmitAfterCloseFailsFast(t *testing.T) {
	task := NewTask()
	task.Close(context.Background())

	future := Submit(task, func() (int, error) { return 1, nil })
	_, err := future.Get()
	if err == nil {
		t.Error("expected error submitting to a closed task")
	}
}

func TestFuture_WaitRespectsContext(t *testing.T) {
	f, _ := NewFuture[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if err == nil {
		t.Error("expected context deadline error")
	}
}

func TestCompleted(t *testing.T) {
	f := Completed(5, nil)
	v, err := f.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("got %d, want 5", v)
	}
}
