// Package mainloop runs functions one at a time on a single goroutine.
//
// The goroutine that pumps a Loop owns the live document model: event
// listeners, status recomputation and save completions all run there and
// never concurrently with each other. Other goroutines hand work over with
// Dispatch, or with Call when they need to wait for the result.
package mainloop

import (
	"context"
	"fmt"
	"sync"
)

// Loop is an unbounded FIFO of functions executed by whoever calls Run,
// RunOnce or Drain.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// New creates an empty loop
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Dispatch queues fn. It never blocks and is safe for concurrent use.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued functions. It is safe for
// concurrent use.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

// RunOnce waits for one function and runs it. It returns ctx.Err() if the
// context ends first.
func (l *Loop) RunOnce(ctx context.Context) error {
	for {
		if fn, ok := l.pop(); ok {
			fn()
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run executes functions until ctx ends, then returns ctx.Err().
// Functions still queued stay queued.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// Drain runs every queued function, including ones queued meanwhile, and
// returns how many ran. It does not wait for new work.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.pop()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Call runs fn on the loop and waits for it. A panic in fn is re-raised in
// the caller. Call must not be used from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var recovered interface{}
	l.Dispatch(func() {
		defer close(done)
		defer func() { recovered = recover() }()
		fn()
	})

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if recovered != nil {
		panic(fmt.Sprintf("mainloop: call panicked: %v", recovered))
	}
	return nil
}
