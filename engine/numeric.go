package engine

// NumericType is one of the fixed-width integer encodings spec.md §3
// allows. Width in bytes is fixed; on-wire byte order is always
// big-endian (network order) regardless of signedness, which affects
// only the typed accessor used to interpret the bytes.
type NumericType int

const (
	U8 NumericType = iota
	U16
	U32
	U64
	I8
	I16
	I32
	I64
)

// Width returns the fixed byte width of t.
func (t NumericType) Width() int {
	switch t {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32:
		return 4
	case U64, I64:
		return 8
	default:
		return 0
	}
}

func (t NumericType) String() string {
	switch t {
	case U8:
		return "U8"
	case U16:
		return "U16"
	case U32:
		return "U32"
	case U64:
		return "U64"
	case I8:
		return "I8"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	default:
		return "Unknown"
	}
}

// PrimitiveType is NumericType | Bool | Char, per spec.md §3. Bool and
// Char are both single bytes; Char is restricted to an ASCII scalar for
// fixed strings.
type PrimitiveType struct {
	numeric NumericType
	isBool  bool
	isChar  bool
}

func Numeric(t NumericType) PrimitiveType { return PrimitiveType{numeric: t} }
func Bool() PrimitiveType                 { return PrimitiveType{isBool: true} }
func Char() PrimitiveType                 { return PrimitiveType{isChar: true} }

// Width returns the fixed byte width of the primitive: 1 for Bool/Char,
// otherwise the numeric type's width.
func (p PrimitiveType) Width() int {
	if p.isBool || p.isChar {
		return 1
	}
	return p.numeric.Width()
}
