package mediator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/opaquewire/protoengine/engine"
)

// AppConn is the application-side collaborator a pump drives: reading
// bytes the local application wrote (to forward to the network) and
// writing bytes destined for the local application (received from the
// network). Implementations honor the len range semantics of spec.md
// §6: ReadApp may return anywhere from lo to hi-1 bytes.
type AppConn interface {
	ReadApp(ctx context.Context, lo, hi int) ([]byte, error)
	WriteApp(ctx context.Context, data []byte) error
}

// NetConn is the network-side collaborator: reading an exact or
// ranged byte count from the peer, and writing bytes to it verbatim.
type NetConn interface {
	ReadNet(ctx context.Context, lo, hi int) ([]byte, error)
	WriteNet(ctx context.Context, data []byte) error
}

// RunOutPump drives the app->net direction: it reads bytes requested
// by RecvApp ops from app and feeds them back via StoreOut, and writes
// SendNet bytes out via net, until the interpreter reports Close or
// Error or ctx is done.
func RunOutPump(ctx context.Context, f *Facade, app AppConn, net NetConn) (err error) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("out pump panic: %v", x))
			log.Error(string(debug.Stack()))
			err = fmt.Errorf("mediator: out pump panicked: %v", x)
		}
	}()

	for {
		op, pollErr := f.NextNetCmdOut(ctx)
		if pollErr != nil {
			return pollErr
		}

		switch op.Kind {
		case engine.NetOpOutRecvApp:
			data, readErr := app.ReadApp(ctx, op.RecvApp.LenRange.Lo, op.RecvApp.LenRange.Hi)
			if readErr != nil {
				return readErr
			}
			if storeErr := f.StoreOut(ctx, op.RecvApp.Addr, data); storeErr != nil {
				return storeErr
			}

		case engine.NetOpOutSendNet:
			if writeErr := net.WriteNet(ctx, op.SendNet.Bytes); writeErr != nil {
				return writeErr
			}

		case engine.NetOpOutClose:
			return nil

		case engine.NetOpOutError:
			return fmt.Errorf("mediator: out direction failed: %s", op.Err)
		}
	}
}

// RunInPump is RunOutPump's net->app counterpart.
func RunInPump(ctx context.Context, f *Facade, app AppConn, net NetConn) (err error) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("in pump panic: %v", x))
			log.Error(string(debug.Stack()))
			err = fmt.Errorf("mediator: in pump panicked: %v", x)
		}
	}()

	for {
		op, pollErr := f.NextNetCmdIn(ctx)
		if pollErr != nil {
			return pollErr
		}

		switch op.Kind {
		case engine.NetOpInRecvNet:
			data, readErr := net.ReadNet(ctx, op.RecvNet.LenRange.Lo, op.RecvNet.LenRange.Hi)
			if readErr != nil {
				return readErr
			}
			if storeErr := f.StoreIn(ctx, op.RecvNet.Addr, data); storeErr != nil {
				return storeErr
			}

		case engine.NetOpInSendApp:
			if writeErr := app.WriteApp(ctx, op.SendApp.Bytes); writeErr != nil {
				return writeErr
			}

		case engine.NetOpInClose:
			return nil

		case engine.NetOpInError:
			return fmt.Errorf("mediator: in direction failed: %s", op.Err)
		}
	}
}

// RunProxy runs both directions concurrently and waits for both to
// finish, returning the first non-nil error either reports. This is
// the two-worker-goroutine shape kryptco-kr's ServeKRAgent uses for its
// agent-listener and hostAuth-listener accept loops, adapted here to
// two cooperating pumps instead of two accept loops.
func RunProxy(ctx context.Context, f *Facade, app AppConn, net NetConn) error {
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- RunOutPump(ctx, f, app, net)
	}()
	go func() {
		defer wg.Done()
		errs <- RunInPump(ctx, f, app, net)
	}()

	wg.Wait()
	close(errs)

	var first error
	for e := range errs {
		if e != nil && first == nil {
			first = e
		}
	}
	return first
}
