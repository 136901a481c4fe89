package engine

// TaskID is an opaque handle a TaskProvider uses to decide what task
// comes next. The zero value identifies the init task, per spec.md §3.
type TaskID string

// Opcode enumerates the closed instruction set of spec.md §4.4. The
// instruction set is a closed tagged union, not an open class
// hierarchy: Instruction below carries one Opcode plus only the
// argument struct that opcode uses, the same shape kryptco-kr's
// protocol.go gives Request/Response (one Kind-like discriminant, a
// handful of optional payload fields, only one ever populated).
type Opcode int

const (
	OpInitFixedSharedKey Opcode = iota
	OpReadApp
	OpReadNet
	OpWriteApp
	OpWriteNet
	OpConcretizeFormat
	OpCreateMessage
	OpGetArrayBytes
	OpSetArrayBytes
	OpGetNumericValue
	OpSetNumericValue
	OpComputeLength
	OpEncryptField
	OpDecryptField
	OpGenRandomBytes
)

// Range is an inclusive-on-low, exclusive-on-high byte-count range, as
// spec.md §4.4 defines for ReadApp/ReadNet.
type Range struct {
	Lo, Hi int
}

// ReadNetLenKind distinguishes ReadNet's three ways of specifying how
// many bytes to read, per spec.md §4.4.
type ReadNetLenKind int

const (
	ReadNetLenRange ReadNetLenKind = iota
	ReadNetLenIdentifier
	ReadNetLenIdentifierMinus
)

// ReadNetLen is ReadNet's from_len argument: a literal Range, or a
// reference to a previously-read numeric field ("read exactly
// number_heap[id] bytes", optionally minus a constant).
type ReadNetLen struct {
	Kind       ReadNetLenKind
	Literal    Range
	Identifier Identifier
	Minus      int
}

// Instruction argument records, one struct per opcode, per spec.md
// §4.4's table.
type InitFixedSharedKeyArgs struct {
	Password string
	Role     Role
}

type ReadAppArgs struct {
	LenRange Range
	ToHeapID Identifier
}

type ReadNetArgs struct {
	FromLen  ReadNetLen
	ToHeapID Identifier
}

type WriteAppArgs struct {
	MsgID   Identifier
	FieldID Identifier
}

type WriteNetArgs struct {
	MsgID Identifier
}

type ConcretizeFormatArgs struct {
	Abstract Format
	ToHeapID Identifier
}

type CreateMessageArgs struct {
	FromFormatHeapID Identifier
	ToHeapID         Identifier
}

type GetArrayBytesArgs struct {
	MsgID    Identifier
	FieldID  Identifier
	ToHeapID Identifier
}

type SetArrayBytesArgs struct {
	FromHeapID Identifier
	MsgID      Identifier
	FieldID    Identifier
}

type GetNumericValueArgs struct {
	MsgID    Identifier
	FieldID  Identifier
	ToHeapID Identifier
}

type SetNumericValueArgs struct {
	FromHeapID Identifier
	MsgID      Identifier
	FieldID    Identifier
}

type ComputeLengthArgs struct {
	MsgID    Identifier
	FieldID  Identifier
	ToHeapID Identifier
}

type EncryptFieldArgs struct {
	MsgID              Identifier
	FieldID            Identifier
	ToCiphertextHeapID Identifier
	ToMacHeapID        Identifier
}

type DecryptFieldArgs struct {
	MsgID             Identifier
	CiphertextFieldID Identifier
	MacFieldID        Identifier
	ToPlaintextHeapID Identifier
}

// Instruction is one closed-union entry: Op names which of the Args
// fields below is populated. Only the interpreter's dispatch switch in
// interpreter.go inspects Op; everything else treats Instruction
// opaquely.
type Instruction struct {
	Op Opcode

	InitFixedSharedKey *InitFixedSharedKeyArgs
	ReadApp            *ReadAppArgs
	ReadNet            *ReadNetArgs
	WriteApp           *WriteAppArgs
	WriteNet           *WriteNetArgs
	ConcretizeFormat   *ConcretizeFormatArgs
	CreateMessage      *CreateMessageArgs
	GetArrayBytes      *GetArrayBytesArgs
	SetArrayBytes      *SetArrayBytesArgs
	GetNumericValue    *GetNumericValueArgs
	SetNumericValue    *SetNumericValueArgs
	ComputeLength      *ComputeLengthArgs
	EncryptField       *EncryptFieldArgs
	DecryptField       *DecryptFieldArgs
}

// Task is an ordered instruction sequence with an identity used to
// derive successors.
type Task struct {
	ID  TaskID
	Ins []Instruction
}
