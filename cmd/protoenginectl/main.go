// Command protoenginectl exercises the engine/mediator packages
// end-to-end over an in-process loopback, the way the teacher's
// krd/ctl binaries exercise a running daemon: no wire socket, just the
// same Facade + pump plumbing a real proxy would use.
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/op/go-logging"
	"github.com/satori/go.uuid"
	"github.com/urfave/cli"

	"github.com/opaquewire/protoengine/engine"
	"github.com/opaquewire/protoengine/mediator"
)

func cyan(s string) string {
	c := color.New(color.FgHiCyan)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func green(s string) string {
	c := color.New(color.FgHiGreen)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func yellow(s string) string {
	c := color.New(color.FgHiYellow)
	c.EnableColor()
	return c.SprintFunc()(s)
}

// connectionID mints a stable per-run identifier the way the teacher's
// pair.go derives a UUID from a workstation key, here from a
// run-specific label instead of a paired key.
func connectionID(label string) uuid.UUID {
	digest := sha256.Sum256([]byte(label))
	id, err := uuid.FromBytes(digest[:16])
	if err != nil {
		// FromBytes only fails on a length mismatch, which a fixed
		// 16-byte slice never hits.
		panic(err)
	}
	return id
}

func lengthPrefixedFormat(payloadHeapID engine.Identifier) engine.Format {
	return engine.Format{
		Name: "DemoWire",
		Fields: []engine.Field{
			{Name: "length", DType: engine.PrimitiveArray(engine.Numeric(engine.U16), 1)},
			{Name: "payload", DType: engine.DynamicArray(payloadHeapID)},
		},
	}
}

// demoHeapKeys mints the opaque heap keys the demo tasks address, the
// way a compiled protocol spec hands the interpreter generated,
// collision-free identifiers instead of hand-picked names. Minting
// them through engine.NewOpaqueIdentifier exercises the same
// saltpack-backed base62 encoding the teacher's util.go
// Rand256Base62 uses for request IDs.
type demoHeapKeys struct {
	payloadBytes engine.Identifier
	fmtOut       engine.Identifier
	msgOut       engine.Identifier
	lengthValue  engine.Identifier
	lengthBytes  engine.Identifier
	fmtLen       engine.Identifier
	msgLen       engine.Identifier
	payloadLen   engine.Identifier
	fmtPayload   engine.Identifier
	msgPayload   engine.Identifier
}

func newDemoHeapKeys() (demoHeapKeys, error) {
	var ids [10]engine.Identifier
	for i := range ids {
		id, err := engine.NewOpaqueIdentifier()
		if err != nil {
			return demoHeapKeys{}, err
		}
		ids[i] = id
	}
	return demoHeapKeys{
		payloadBytes: ids[0],
		fmtOut:       ids[1],
		msgOut:       ids[2],
		lengthValue:  ids[3],
		lengthBytes:  ids[4],
		fmtLen:       ids[5],
		msgLen:       ids[6],
		payloadLen:   ids[7],
		fmtPayload:   ids[8],
		msgPayload:   ids[9],
	}, nil
}

func demoOutTask(id engine.TaskID, k demoHeapKeys) engine.Task {
	format := lengthPrefixedFormat(k.payloadBytes)
	return engine.Task{
		ID: id,
		Ins: []engine.Instruction{
			{Op: engine.OpReadApp, ReadApp: &engine.ReadAppArgs{LenRange: engine.Range{Lo: 1, Hi: 1 << 16}, ToHeapID: k.payloadBytes}},
			{Op: engine.OpConcretizeFormat, ConcretizeFormat: &engine.ConcretizeFormatArgs{Abstract: format, ToHeapID: k.fmtOut}},
			{Op: engine.OpCreateMessage, CreateMessage: &engine.CreateMessageArgs{FromFormatHeapID: k.fmtOut, ToHeapID: k.msgOut}},
			{Op: engine.OpSetArrayBytes, SetArrayBytes: &engine.SetArrayBytesArgs{FromHeapID: k.payloadBytes, MsgID: k.msgOut, FieldID: "payload"}},
			{Op: engine.OpComputeLength, ComputeLength: &engine.ComputeLengthArgs{MsgID: k.msgOut, FieldID: "payload", ToHeapID: k.lengthValue}},
			{Op: engine.OpSetNumericValue, SetNumericValue: &engine.SetNumericValueArgs{FromHeapID: k.lengthValue, MsgID: k.msgOut, FieldID: "length"}},
			{Op: engine.OpWriteNet, WriteNet: &engine.WriteNetArgs{MsgID: k.msgOut}},
		},
	}
}

func demoInTask(id engine.TaskID, k demoHeapKeys) engine.Task {
	lengthFormat := engine.Format{
		Name:   "DemoWireLength",
		Fields: []engine.Field{{Name: "length", DType: engine.PrimitiveArray(engine.Numeric(engine.U16), 1)}},
	}
	payloadFormat := engine.Format{
		Name:   "DemoWirePayload",
		Fields: []engine.Field{{Name: "payload", DType: engine.DynamicArray(k.payloadBytes)}},
	}
	return engine.Task{
		ID: id,
		Ins: []engine.Instruction{
			{Op: engine.OpReadNet, ReadNet: &engine.ReadNetArgs{FromLen: engine.ReadNetLen{Kind: engine.ReadNetLenRange, Literal: engine.Range{Lo: 2, Hi: 3}}, ToHeapID: k.lengthBytes}},
			{Op: engine.OpConcretizeFormat, ConcretizeFormat: &engine.ConcretizeFormatArgs{Abstract: lengthFormat, ToHeapID: k.fmtLen}},
			{Op: engine.OpCreateMessage, CreateMessage: &engine.CreateMessageArgs{FromFormatHeapID: k.fmtLen, ToHeapID: k.msgLen}},
			{Op: engine.OpSetArrayBytes, SetArrayBytes: &engine.SetArrayBytesArgs{FromHeapID: k.lengthBytes, MsgID: k.msgLen, FieldID: "length"}},
			{Op: engine.OpGetNumericValue, GetNumericValue: &engine.GetNumericValueArgs{MsgID: k.msgLen, FieldID: "length", ToHeapID: k.payloadLen}},
			{Op: engine.OpReadNet, ReadNet: &engine.ReadNetArgs{FromLen: engine.ReadNetLen{Kind: engine.ReadNetLenIdentifier, Identifier: k.payloadLen}, ToHeapID: k.payloadBytes}},
			{Op: engine.OpConcretizeFormat, ConcretizeFormat: &engine.ConcretizeFormatArgs{Abstract: payloadFormat, ToHeapID: k.fmtPayload}},
			{Op: engine.OpCreateMessage, CreateMessage: &engine.CreateMessageArgs{FromFormatHeapID: k.fmtPayload, ToHeapID: k.msgPayload}},
			{Op: engine.OpSetArrayBytes, SetArrayBytes: &engine.SetArrayBytesArgs{FromHeapID: k.payloadBytes, MsgID: k.msgPayload, FieldID: "payload"}},
			{Op: engine.OpWriteApp, WriteApp: &engine.WriteAppArgs{MsgID: k.msgPayload, FieldID: "payload"}},
		},
	}
}

type oneShotProvider struct{ task engine.Task }

func (p oneShotProvider) GetInitTask() engine.Task { return engine.Task{} }
func (p oneShotProvider) GetNextTasks(engine.TaskID) engine.TaskSet {
	return engine.OutTask(p.task)
}

type oneShotInProvider struct{ task engine.Task }

func (p oneShotInProvider) GetInitTask() engine.Task { return engine.Task{} }
func (p oneShotInProvider) GetNextTasks(engine.TaskID) engine.TaskSet {
	return engine.InTask(p.task)
}

// onceApp hands a single fixed payload to a ReadApp and then blocks
// until ctx is canceled, the way a real application socket would idle
// between writes.
type onceApp struct {
	payload []byte
	used    bool
	mu      sync.Mutex
}

func (a *onceApp) ReadApp(ctx context.Context, lo, hi int) ([]byte, error) {
	a.mu.Lock()
	if !a.used {
		a.used = true
		a.mu.Unlock()
		return a.payload, nil
	}
	a.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (a *onceApp) WriteApp(ctx context.Context, data []byte) error {
	panic("onceApp.WriteApp should never be called by RunOutPump")
}

// sinkApp captures the first WriteApp delivery onto a channel and
// otherwise idles, the receiving side's counterpart to onceApp.
type sinkApp struct {
	delivered chan []byte
}

func (a *sinkApp) ReadApp(ctx context.Context, lo, hi int) ([]byte, error) {
	panic("sinkApp.ReadApp should never be called by RunInPump")
}

func (a *sinkApp) WriteApp(ctx context.Context, data []byte) error {
	select {
	case a.delivered <- data:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ctx.Done()
	return ctx.Err()
}

// memPipe is an in-process network: WriteNet appends, ReadNet blocks
// until enough bytes have accumulated, standing in for the socket a
// real mediator.NetConn would wrap.
type memPipe struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []byte
}

func newMemPipe() *memPipe {
	p := &memPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *memPipe) WriteNet(ctx context.Context, data []byte) error {
	p.mu.Lock()
	p.buf = append(p.buf, data...)
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}

func (p *memPipe) ReadNet(ctx context.Context, lo, hi int) ([]byte, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) < lo {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.cond.Wait()
	}
	out := append([]byte(nil), p.buf[:lo]...)
	p.buf = p.buf[lo:]
	return out, nil
}

func runDemo(payload []byte, label string) error {
	id := connectionID(label)
	fmt.Printf("%s connection %s\n", cyan("[protoenginectl]"), id.String())

	keys, err := newDemoHeapKeys()
	if err != nil {
		return err
	}

	senderIt, err := engine.NewInterpreter(oneShotProvider{task: demoOutTask("out", keys)})
	if err != nil {
		return err
	}
	receiverIt, err := engine.NewInterpreter(oneShotInProvider{task: demoInTask("in", keys)})
	if err != nil {
		return err
	}

	senderFacade := mediator.NewFacade(senderIt)
	receiverFacade := mediator.NewFacade(receiverIt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	net := newMemPipe()
	app := &onceApp{payload: payload}
	sink := &sinkApp{delivered: make(chan []byte, 1)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = mediator.RunOutPump(ctx, senderFacade, app, net)
	}()
	go func() {
		defer wg.Done()
		_ = mediator.RunInPump(ctx, receiverFacade, sink, net)
	}()

	select {
	case got := <-sink.delivered:
		fmt.Printf("%s sent %d bytes, delivered %d bytes: %q\n", green("[ok]"), len(payload), len(got), got)
	case <-ctx.Done():
		fmt.Printf("%s timed out waiting for delivery\n", yellow("[warn]"))
	}

	cancel()
	wg.Wait()
	return nil
}

func main() {
	engine.SetupLogging(logging.INFO)

	app := cli.NewApp()
	app.Name = "protoenginectl"
	app.Usage = "drive the protocol engine through a loopback demo"
	app.Commands = []cli.Command{
		{
			Name:  "demo",
			Usage: "run a length-prefixed message through the interpreter and mediator",
			Action: func(c *cli.Context) error {
				return runDemo([]byte("Attack at dawn!"), "protoenginectl-demo")
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
