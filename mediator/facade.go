// Package mediator exposes engine.Interpreter to two concurrent I/O
// pumps (application side and network side) behind a single mutex, per
// spec.md §4.6. The interpreter is not itself thread-safe; Facade is
// the synchronization boundary a real proxy should drive it through.
package mediator

import (
	"context"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/opaquewire/protoengine/engine"
)

var log = logging.MustGetLogger("mediator")

// retryInterval is how long a blocked or lock-contended poll waits
// before trying again. spec.md §9 calls the try-lock-then-yield pattern
// "an optimistic fairness hack, not a hard guarantee"; a short sleep is
// the idiomatic Go stand-in for the Rust original's poll_fn-based
// cooperative yield back to the async runtime.
const retryInterval = 500 * time.Microsecond

// Facade serializes access to one Interpreter across the two
// directions. Only one direction ever mutates interpreter state at a
// time (try-lock acquisition is exclusive), and neither direction can
// starve the other indefinitely because every blocked or contended
// attempt returns to the scheduler instead of spinning inline.
type Facade struct {
	mu sync.Mutex
	it *engine.Interpreter
}

// NewFacade wraps it behind a single-writer mutex.
func NewFacade(it *engine.Interpreter) *Facade {
	return &Facade{it: it}
}

// NextNetCmdOut blocks (cooperatively, yielding on contention or on a
// blocked direction) until the interpreter has an app->net NetOp ready,
// or ctx is done.
func (f *Facade) NextNetCmdOut(ctx context.Context) (*engine.NetOpOut, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.mu.TryLock() {
			op, ready := f.it.NextNetCmdOut()
			f.mu.Unlock()
			if ready {
				return op, nil
			}
		}
		if err := sleepOrDone(ctx); err != nil {
			return nil, err
		}
	}
}

// NextNetCmdIn is NextNetCmdOut's net->app counterpart.
func (f *Facade) NextNetCmdIn(ctx context.Context) (*engine.NetOpIn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.mu.TryLock() {
			op, ready := f.it.NextNetCmdIn()
			f.mu.Unlock()
			if ready {
				return op, nil
			}
		}
		if err := sleepOrDone(ctx); err != nil {
			return nil, err
		}
	}
}

// StoreIn stores bytes received from the network into the in-direction
// program's byte heap.
func (f *Facade) StoreIn(ctx context.Context, addr engine.Identifier, data []byte) error {
	return f.store(ctx, addr, data, f.it.StoreIn)
}

// StoreOut stores bytes received from the application into the
// out-direction program's byte heap.
func (f *Facade) StoreOut(ctx context.Context, addr engine.Identifier, data []byte) error {
	return f.store(ctx, addr, data, f.it.StoreOut)
}

func (f *Facade) store(ctx context.Context, addr engine.Identifier, data []byte, do func(engine.Identifier, []byte)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.mu.TryLock() {
			do(addr, data)
			f.mu.Unlock()
			return nil
		}
		if err := sleepOrDone(ctx); err != nil {
			return err
		}
	}
}

func sleepOrDone(ctx context.Context) error {
	t := time.NewTimer(retryInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
