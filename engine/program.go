package engine

// Program is the runtime instance of a Task: its instruction pointer
// plus four independent heaps, per spec.md §3. A program is created
// when its task is loaded and destroyed once next_ins_index reaches
// len(task.Ins).
type Program struct {
	task         Task
	nextInsIndex int
	bytesHeap    *Heap[[]byte]
	formatHeap   *Heap[ConcreteFormat]
	messageHeap  *Heap[*Message]
	numberHeap   *Heap[uint64]
}

func newProgram(t Task) *Program {
	return &Program{
		task:        t,
		bytesHeap:   NewHeap[[]byte](),
		formatHeap:  NewHeap[ConcreteFormat](),
		messageHeap: NewHeap[*Message](),
		numberHeap:  NewHeap[uint64](),
	}
}

func (p *Program) hasNextInstruction() bool {
	return p.nextInsIndex < len(p.task.Ins)
}

// storeBytes inserts bytes into the program's byte heap, used by the
// interpreter's store_in/store_out to satisfy a pending RecvApp/RecvNet.
func (p *Program) storeBytes(addr Identifier, data []byte) {
	p.bytesHeap.Insert(addr, data)
}
