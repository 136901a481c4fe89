package mediator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opaquewire/protoengine/engine"
)

// echoOutTask reads whatever bytes the application wrote and writes them
// back out to the network unframed, wrapped in a single dynamic field so
// WriteNet has a Message to serialize.
func echoOutTask(id engine.TaskID) engine.Task {
	format := engine.Format{
		Name:   "Echo",
		Fields: []engine.Field{{Name: "payload", DType: engine.DynamicArray("payload_bytes")}},
	}
	return engine.Task{
		ID: id,
		Ins: []engine.Instruction{
			{Op: engine.OpReadApp, ReadApp: &engine.ReadAppArgs{LenRange: engine.Range{Lo: 1, Hi: 1 << 16}, ToHeapID: "payload_bytes"}},
			{Op: engine.OpConcretizeFormat, ConcretizeFormat: &engine.ConcretizeFormatArgs{Abstract: format, ToHeapID: "fmt"}},
			{Op: engine.OpCreateMessage, CreateMessage: &engine.CreateMessageArgs{FromFormatHeapID: "fmt", ToHeapID: "msg"}},
			{Op: engine.OpSetArrayBytes, SetArrayBytes: &engine.SetArrayBytesArgs{FromHeapID: "payload_bytes", MsgID: "msg", FieldID: "payload"}},
			{Op: engine.OpWriteNet, WriteNet: &engine.WriteNetArgs{MsgID: "msg"}},
		},
	}
}

type echoProvider struct{ task engine.Task }

func (p echoProvider) GetInitTask() engine.Task { return engine.Task{} }
func (p echoProvider) GetNextTasks(engine.TaskID) engine.TaskSet {
	return engine.OutTask(p.task)
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	it, err := engine.NewInterpreter(echoProvider{task: echoOutTask("echo1")})
	if err != nil {
		t.Fatal(err)
	}
	return NewFacade(it)
}

func TestFacadeStoreOutThenNextNetCmdOutRoundTrips(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	op, err := f.NextNetCmdOut(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if op.Kind != engine.NetOpOutRecvApp {
		t.Fatalf("got %v, want NetOpOutRecvApp", op.Kind)
	}

	payload := []byte("Attack at dawn!")
	if err := f.StoreOut(ctx, op.RecvApp.Addr, payload); err != nil {
		t.Fatal(err)
	}

	op, err = f.NextNetCmdOut(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if op.Kind != engine.NetOpOutSendNet {
		t.Fatalf("got %v, want NetOpOutSendNet", op.Kind)
	}
	if !bytes.Equal(op.SendNet.Bytes, payload) {
		t.Fatalf("got %q, want %q", op.SendNet.Bytes, payload)
	}
}

// inOnlyProvider only ever hands out an in-task, so an interpreter built
// on it never has a program for the out direction.
type inOnlyProvider struct{}

func (inOnlyProvider) GetInitTask() engine.Task { return engine.Task{} }
func (inOnlyProvider) GetNextTasks(engine.TaskID) engine.TaskSet {
	return engine.InTask(engine.Task{ID: "in1"})
}

func TestFacadeNextNetCmdOutReturnsCtxErrWhenBlocked(t *testing.T) {
	it, err := engine.NewInterpreter(inOnlyProvider{})
	if err != nil {
		t.Fatal(err)
	}
	f := NewFacade(it)

	blockedCtx, blockedCancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer blockedCancel()

	// The provider never supplies an out-task, so the out direction has
	// no program and every poll reports it blocked: the call must give
	// up when ctx expires rather than spin indefinitely.
	if _, err := f.NextNetCmdOut(blockedCtx); err == nil {
		t.Fatal("expected a context deadline error")
	}
}

// TestFacadeSerializesConcurrentDirections drives the out direction
// (NextNetCmdOut and StoreOut) in one goroutine while another goroutine
// polls the in direction, the shape mediator/pump.go's two pumps use it
// in, and checks the out round trip still completes without a data race
// (run with -race to verify the mutex actually serializes access).
func TestFacadeSerializesConcurrentDirections(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload := []byte("The eagle has landed.")
	done := make(chan []byte, 1)
	errs := make(chan error, 1)

	// The provider never supplies an in-task, so this poll stays blocked
	// and keeps contending for the mutex until ctx is canceled.
	go func() { _, _ = f.NextNetCmdIn(ctx) }()

	go func() {
		for {
			op, err := f.NextNetCmdOut(ctx)
			if err != nil {
				errs <- err
				return
			}
			switch op.Kind {
			case engine.NetOpOutRecvApp:
				if err := f.StoreOut(ctx, op.RecvApp.Addr, payload); err != nil {
					errs <- err
					return
				}
			case engine.NetOpOutSendNet:
				done <- op.SendNet.Bytes
				return
			}
		}
	}()

	select {
	case got := <-done:
		if !bytes.Equal(got, payload) {
			t.Fatalf("got %q, want %q", got, payload)
		}
	case err := <-errs:
		t.Fatal(err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for round trip")
	}
}
