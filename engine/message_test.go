package engine

import (
	"bytes"
	"testing"
)

func lengthPayloadFormat(t *testing.T, payloadLen int) ConcreteFormat {
	t.Helper()
	abstract := Format{
		Name: "DataMessageOut",
		Fields: []Field{
			{Name: "length", DType: PrimitiveArray(Numeric(U16), 1)},
			{Name: "payload", DType: DynamicArray("length")},
		},
	}
	cf, err := abstract.Concretize([]DynLen{{ID: "length", Len: payloadLen}})
	if err != nil {
		t.Fatal(err)
	}
	return cf
}

func TestSetGetFieldBytesRoundTrip(t *testing.T) {
	payload := []byte("Attack at dawn!")
	msg := NewMessage(lengthPayloadFormat(t, len(payload)))

	if err := msg.SetFieldBytes("payload", payload); err != nil {
		t.Fatal(err)
	}
	got, err := msg.GetFieldBytes("payload")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestSetFieldBytesWrongLengthFails(t *testing.T) {
	msg := NewMessage(lengthPayloadFormat(t, 5))
	if err := msg.SetFieldBytes("payload", []byte("too short")); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestSetGetNumericRoundTrip(t *testing.T) {
	msg := NewMessage(lengthPayloadFormat(t, 21))
	if err := msg.SetFieldUnsignedNumeric("length", 21); err != nil {
		t.Fatal(err)
	}
	got, err := msg.GetFieldUnsignedNumeric("length")
	if err != nil {
		t.Fatal(err)
	}
	if got != 21 {
		t.Fatalf("got %d, want 21", got)
	}
}

func TestSetNumericOverflowFails(t *testing.T) {
	msg := NewMessage(lengthPayloadFormat(t, 1))
	if err := msg.SetFieldUnsignedNumeric("length", 1<<20); err != ErrNumericOverflow {
		t.Fatalf("got %v, want ErrNumericOverflow", err)
	}
}

func TestLenSuffixCoversFieldThroughEnd(t *testing.T) {
	payload := []byte("hello world")
	msg := NewMessage(lengthPayloadFormat(t, len(payload)))
	if err := msg.SetFieldBytes("payload", payload); err != nil {
		t.Fatal(err)
	}

	n, err := msg.LenSuffix("payload")
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatalf("got %d, want %d", n, len(payload))
	}

	n, err = msg.LenSuffix("length")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2+len(payload) {
		t.Fatalf("got %d, want %d", n, 2+len(payload))
	}
}

func TestIntoInnerFieldYieldsOnlyThatField(t *testing.T) {
	payload := []byte("Attack at dawn!")
	msg := NewMessage(lengthPayloadFormat(t, len(payload)))
	if err := msg.SetFieldBytes("payload", payload); err != nil {
		t.Fatal(err)
	}
	if err := msg.SetFieldUnsignedNumeric("length", uint64(len(payload))); err != nil {
		t.Fatal(err)
	}

	got, err := msg.IntoInnerField("payload")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}
