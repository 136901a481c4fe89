package engine

import "fmt"

// Interpreter steps the programs for both directions of one connection,
// owns the shared cipher, and surfaces pending NetOps. It is not itself
// thread-safe; the mediator package's Facade is what a concurrent
// caller should use (spec.md §4.6).
type Interpreter struct {
	provider TaskProvider
	cipher   *Cipher

	nextNetOpOut *NetOpOut
	nextNetOpIn  *NetOpIn

	curProgOut *Program
	curProgIn  *Program

	lastTaskID  TaskID
	wantsTasks  bool

	formats *formatCache
}

// NewInterpreter instantiates the provider's init task and runs it to
// completion synchronously. The init task is required to contain only
// instructions that do not yield I/O (in practice zero or more
// InitFixedSharedKey), per spec.md §4.5.
func NewInterpreter(provider TaskProvider) (*Interpreter, error) {
	it := &Interpreter{
		provider:   provider,
		wantsTasks: true,
		formats:    newFormatCache(),
	}

	initProg := newProgram(provider.GetInitTask())
	for initProg.hasNextInstruction() {
		if err := it.executeGuarded(initProg); err != nil {
			return nil, fmt.Errorf("engine: init task failed: %w", err)
		}
		if it.nextNetOpIn != nil || it.nextNetOpOut != nil {
			return nil, fmt.Errorf("engine: init task yielded a network operation")
		}
	}
	it.lastTaskID = initProg.task.ID

	return it, nil
}

// loadTasks asks the provider for the next task pair and installs each
// returned task into the direction(s) that are currently empty. An ID
// mismatch on an occupied slot is a programmer error in the provider
// and is fatal, per spec.md §4.5 and §8 scenario S6.
func (it *Interpreter) loadTasks() error {
	set := it.provider.GetNextTasks(it.lastTaskID)
	it.wantsTasks = false

	switch set.Kind {
	case TaskSetIn:
		return it.installTask(&it.curProgIn, set.In)
	case TaskSetOut:
		return it.installTask(&it.curProgOut, set.Out)
	case TaskSetInAndOut:
		if err := it.installTask(&it.curProgIn, set.In); err != nil {
			return err
		}
		return it.installTask(&it.curProgOut, set.Out)
	}
	return nil
}

func (it *Interpreter) installTask(slot **Program, t Task) error {
	if *slot != nil {
		if (*slot).task.ID != t.ID {
			return fmt.Errorf("%w: have %q, provider returned %q", ErrTaskIDConflict, (*slot).task.ID, t.ID)
		}
		return nil
	}
	*slot = newProgram(t)
	return nil
}

// NextNetCmdOut returns the next app->net NetOp, or (nil, false) if the
// out direction is currently blocked waiting for the provider or the
// other direction to make progress.
func (it *Interpreter) NextNetCmdOut() (*NetOpOut, bool) {
	for {
		if it.wantsTasks {
			if err := it.loadTasks(); err != nil {
				return &NetOpOut{Kind: NetOpOutError, Err: err.Error()}, true
			}
		}

		program := it.curProgOut
		if program == nil {
			return nil, false
		}

		for program.hasNextInstruction() {
			if err := it.executeGuarded(program); err != nil {
				it.nextNetOpOut = &NetOpOut{Kind: NetOpOutError, Err: err.Error()}
			}
			if op := it.nextNetOpOut; op != nil {
				it.nextNetOpOut = nil
				return op, true
			}
		}

		it.lastTaskID = program.task.ID
		it.curProgOut = nil
		it.wantsTasks = true
	}
}

// NextNetCmdIn returns the next net->app NetOp, or (nil, false) if the
// in direction is currently blocked.
func (it *Interpreter) NextNetCmdIn() (*NetOpIn, bool) {
	for {
		if it.wantsTasks {
			if err := it.loadTasks(); err != nil {
				return &NetOpIn{Kind: NetOpInError, Err: err.Error()}, true
			}
		}

		program := it.curProgIn
		if program == nil {
			return nil, false
		}

		for program.hasNextInstruction() {
			if err := it.executeGuarded(program); err != nil {
				it.nextNetOpIn = &NetOpIn{Kind: NetOpInError, Err: err.Error()}
			}
			if op := it.nextNetOpIn; op != nil {
				it.nextNetOpIn = nil
				return op, true
			}
		}

		it.lastTaskID = program.task.ID
		it.curProgIn = nil
		it.wantsTasks = true
	}
}

// StoreIn places bytes received from the network into the in-direction
// program's byte heap. A late store arriving after that program has
// already completed is silently dropped, per spec.md §4.5 and §9.
func (it *Interpreter) StoreIn(addr Identifier, data []byte) {
	if it.curProgIn != nil {
		it.curProgIn.storeBytes(addr, data)
	}
}

// StoreOut places bytes received from the application into the
// out-direction program's byte heap. Same late-store semantics as
// StoreIn.
func (it *Interpreter) StoreOut(addr Identifier, data []byte) {
	if it.curProgOut != nil {
		it.curProgOut.storeBytes(addr, data)
	}
}

// executeGuarded runs one instruction behind recoverToErr so a bug in a
// single instruction's implementation surfaces as a NetOp*Error for this
// connection instead of taking the whole process down with it.
func (it *Interpreter) executeGuarded(p *Program) (err error) {
	if panicErr := recoverToErr(func() {
		err = it.executeNextInstruction(p)
	}); panicErr != nil {
		return panicErr
	}
	return err
}

// executeNextInstruction runs exactly one instruction of p, advancing
// its instruction pointer exactly once. Every instruction, including
// one that yields a NetOp, runs to completion here — "yielding" means
// it populated it.nextNetOp{In,Out} before returning, not that it left
// itself half-executed. That is what makes double-execution on resume
// impossible (spec.md §8 property 6).
func (it *Interpreter) executeNextInstruction(p *Program) error {
	ins := p.task.Ins[p.nextInsIndex]
	defer func() { p.nextInsIndex++ }()

	switch ins.Op {
	case OpInitFixedSharedKey:
		args := ins.InitFixedSharedKey
		key, err := DeriveFixedSharedKey(args.Password)
		if err != nil {
			return err
		}
		cipher, err := NewCipher(key, args.Role)
		if err != nil {
			return err
		}
		it.cipher = cipher

	case OpReadApp:
		args := ins.ReadApp
		it.nextNetOpOut = &NetOpOut{
			Kind:    NetOpOutRecvApp,
			RecvApp: &RecvArgs{LenRange: args.LenRange, Addr: args.ToHeapID},
		}

	case OpReadNet:
		args := ins.ReadNet
		r, err := it.resolveReadNetLen(p, args.FromLen)
		if err != nil {
			return err
		}
		it.nextNetOpIn = &NetOpIn{
			Kind:    NetOpInRecvNet,
			RecvNet: &RecvArgs{LenRange: r, Addr: args.ToHeapID},
		}

	case OpWriteApp:
		args := ins.WriteApp
		msg, err := p.messageHeap.Remove(args.MsgID)
		if err != nil {
			return err
		}
		bytes, err := msg.IntoInnerField(args.FieldID)
		if err != nil {
			return err
		}
		it.nextNetOpIn = &NetOpIn{Kind: NetOpInSendApp, SendApp: &SendArgs{Bytes: bytes}}

	case OpWriteNet:
		args := ins.WriteNet
		msg, err := p.messageHeap.Remove(args.MsgID)
		if err != nil {
			return err
		}
		it.nextNetOpOut = &NetOpOut{Kind: NetOpOutSendNet, SendNet: &SendArgs{Bytes: msg.IntoInner()}}

	case OpConcretizeFormat:
		args := ins.ConcretizeFormat
		dynIDs := args.Abstract.GetDynamicArrays()
		lens := make([]DynLen, 0, len(dynIDs))
		for _, id := range dynIDs {
			blob, err := p.bytesHeap.Get(id)
			if err != nil {
				return err
			}
			lens = append(lens, DynLen{ID: id, Len: len(blob)})
		}
		cf, err := it.formats.concretize(args.Abstract, lens)
		if err != nil {
			return err
		}
		p.formatHeap.Insert(args.ToHeapID, cf)

	case OpCreateMessage:
		args := ins.CreateMessage
		cf, err := p.formatHeap.Remove(args.FromFormatHeapID)
		if err != nil {
			return err
		}
		p.messageHeap.Insert(args.ToHeapID, NewMessage(cf))

	case OpGetArrayBytes:
		args := ins.GetArrayBytes
		msg, err := p.messageHeap.Get(args.MsgID)
		if err != nil {
			return err
		}
		bytes, err := msg.GetFieldBytes(args.FieldID)
		if err != nil {
			return err
		}
		cp := append([]byte(nil), bytes...)
		p.bytesHeap.Insert(args.ToHeapID, cp)

	case OpSetArrayBytes:
		args := ins.SetArrayBytes
		bytes, err := p.bytesHeap.Get(args.FromHeapID)
		if err != nil {
			return err
		}
		msg, err := p.messageHeap.Remove(args.MsgID)
		if err != nil {
			return err
		}
		if err := msg.SetFieldBytes(args.FieldID, bytes); err != nil {
			return err
		}
		p.messageHeap.Insert(args.MsgID, msg)

	case OpGetNumericValue:
		args := ins.GetNumericValue
		msg, err := p.messageHeap.Get(args.MsgID)
		if err != nil {
			return err
		}
		v, err := msg.GetFieldUnsignedNumeric(args.FieldID)
		if err != nil {
			return err
		}
		p.numberHeap.Insert(args.ToHeapID, v)

	case OpSetNumericValue:
		args := ins.SetNumericValue
		v, err := p.numberHeap.Get(args.FromHeapID)
		if err != nil {
			return err
		}
		msg, err := p.messageHeap.Remove(args.MsgID)
		if err != nil {
			return err
		}
		if err := msg.SetFieldUnsignedNumeric(args.FieldID, v); err != nil {
			return err
		}
		p.messageHeap.Insert(args.MsgID, msg)

	case OpComputeLength:
		args := ins.ComputeLength
		msg, err := p.messageHeap.Get(args.MsgID)
		if err != nil {
			return err
		}
		n, err := msg.LenSuffix(args.FieldID)
		if err != nil {
			return err
		}
		p.numberHeap.Insert(args.ToHeapID, uint64(n))

	case OpEncryptField:
		args := ins.EncryptField
		if it.cipher == nil {
			return ErrCipherNotInstalled
		}
		msg, err := p.messageHeap.Get(args.MsgID)
		if err != nil {
			return err
		}
		plaintext, err := msg.GetFieldBytes(args.FieldID)
		if err != nil {
			return err
		}
		ciphertext, mac, err := it.cipher.Encrypt(plaintext)
		if err != nil {
			return err
		}
		p.bytesHeap.Insert(args.ToCiphertextHeapID, ciphertext)
		p.bytesHeap.Insert(args.ToMacHeapID, mac[:])

	case OpDecryptField:
		args := ins.DecryptField
		if it.cipher == nil {
			return ErrCipherNotInstalled
		}
		msg, err := p.messageHeap.Get(args.MsgID)
		if err != nil {
			return err
		}
		ciphertext, err := msg.GetFieldBytes(args.CiphertextFieldID)
		if err != nil {
			return err
		}
		macBytes, err := msg.GetFieldBytes(args.MacFieldID)
		if err != nil {
			return err
		}
		var mac [macSize]byte
		copy(mac[:], macBytes)
		plaintext, err := it.cipher.Decrypt(ciphertext, mac)
		if err != nil {
			return err
		}
		p.bytesHeap.Insert(args.ToPlaintextHeapID, plaintext)

	case OpGenRandomBytes:
		// Reserved; not required for conformance at this level, per
		// spec.md §4.4 and §9.
		return ErrNotImplemented

	default:
		return fmt.Errorf("engine: unknown opcode %d", ins.Op)
	}

	return nil
}

// resolveReadNetLen computes the concrete byte Range a ReadNet
// instruction should request, per spec.md §4.4: a literal range, or an
// exact-width range derived from a previously computed numeric field
// (optionally minus a constant). original_source's interpreter.rs
// resolves the Identifier/IdentifierMinus forms to the half-open range
// [n, n+1) starting at the computed value n; we carry that literally (see
// SPEC_FULL.md open question 3).
func (it *Interpreter) resolveReadNetLen(p *Program, l ReadNetLen) (Range, error) {
	switch l.Kind {
	case ReadNetLenRange:
		return l.Literal, nil
	case ReadNetLenIdentifier:
		v, err := p.numberHeap.Get(l.Identifier)
		if err != nil {
			return Range{}, err
		}
		n := int(v)
		return Range{Lo: n, Hi: n + 1}, nil
	case ReadNetLenIdentifierMinus:
		v, err := p.numberHeap.Get(l.Identifier)
		if err != nil {
			return Range{}, err
		}
		n := int(v) - l.Minus
		return Range{Lo: n, Hi: n + 1}, nil
	default:
		return Range{}, fmt.Errorf("engine: unknown ReadNetLen kind %d", l.Kind)
	}
}
