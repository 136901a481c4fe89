package engine

import (
	"encoding/binary"
	"fmt"
)

// Message is a contiguous byte buffer sized to its concrete format's
// total field length, plus a field-name -> (offset, length) index. The
// buffer is allocated once and mutated in place; it is never resized,
// per spec.md §3.
type Message struct {
	format ConcreteFormat
	buf    []byte
}

// NewMessage allocates a zeroed buffer of cf's total size.
func NewMessage(cf ConcreteFormat) *Message {
	return &Message{format: cf, buf: make([]byte, cf.TotalLen)}
}

func (m *Message) field(id Identifier) (ConcreteField, error) {
	return m.format.FieldByName(id)
}

// GetFieldBytes returns a slice view over the field's current bytes.
// The caller must not retain it past the next mutation of m.
func (m *Message) GetFieldBytes(id Identifier) ([]byte, error) {
	f, err := m.field(id)
	if err != nil {
		return nil, err
	}
	return m.buf[f.Offset : f.Offset+f.Length], nil
}

// SetFieldBytes copies data into the field in place. The input length
// must equal the field's declared length.
func (m *Message) SetFieldBytes(id Identifier, data []byte) error {
	f, err := m.field(id)
	if err != nil {
		return err
	}
	if len(data) != f.Length {
		return fmt.Errorf("%w: field %s wants %d bytes, got %d", ErrFieldLengthMismatch, id, f.Length, len(data))
	}
	copy(m.buf[f.Offset:f.Offset+f.Length], data)
	return nil
}

// GetFieldUnsignedNumeric reads 1/2/4/8 bytes big-endian into a u128
// (represented here as uint64, since this engine's NumericType widths
// top out at 8 bytes — see DESIGN.md).
func (m *Message) GetFieldUnsignedNumeric(id Identifier) (uint64, error) {
	f, err := m.field(id)
	if err != nil {
		return 0, err
	}
	b := m.buf[f.Offset : f.Offset+f.Length]
	switch f.Length {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	case 8:
		return binary.BigEndian.Uint64(b), nil
	default:
		return 0, fmt.Errorf("%w: field %s has non-numeric width %d", ErrUnknownField, id, f.Length)
	}
}

// SetFieldUnsignedNumeric writes v big-endian into the field's declared
// width. It fails if v does not fit.
func (m *Message) SetFieldUnsignedNumeric(id Identifier, v uint64) error {
	f, err := m.field(id)
	if err != nil {
		return err
	}
	b := m.buf[f.Offset : f.Offset+f.Length]
	switch f.Length {
	case 1:
		if v > 0xFF {
			return ErrNumericOverflow
		}
		b[0] = byte(v)
	case 2:
		if v > 0xFFFF {
			return ErrNumericOverflow
		}
		binary.BigEndian.PutUint16(b, uint16(v))
	case 4:
		if v > 0xFFFFFFFF {
			return ErrNumericOverflow
		}
		binary.BigEndian.PutUint32(b, uint32(v))
	case 8:
		binary.BigEndian.PutUint64(b, v)
	default:
		return fmt.Errorf("%w: field %s has non-numeric width %d", ErrUnknownField, id, f.Length)
	}
	return nil
}

// LenSuffix returns the number of bytes from the start of id through the
// end of the buffer, used to compute on-wire length prefixes that cover
// themselves plus everything after.
func (m *Message) LenSuffix(id Identifier) (int, error) {
	f, err := m.field(id)
	if err != nil {
		return 0, err
	}
	return len(m.buf) - f.Offset, nil
}

// IntoInner consumes the message and yields the whole buffer.
func (m *Message) IntoInner() []byte {
	return m.buf
}

// IntoInnerField consumes the message and yields only one field's
// bytes, used when handing a plaintext payload to the application side.
func (m *Message) IntoInnerField(id Identifier) ([]byte, error) {
	f, err := m.field(id)
	if err != nil {
		return nil, err
	}
	return m.buf[f.Offset : f.Offset+f.Length], nil
}
