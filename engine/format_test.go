package engine

import "testing"

func TestConcretizeSumsToMessageSize(t *testing.T) {
	abstract := Format{
		Name: "DataMessageOut",
		Fields: []Field{
			{Name: "length", DType: PrimitiveArray(Numeric(U16), 1)},
			{Name: "payload", DType: DynamicArray("length")},
		},
	}

	payload := []byte("When should I attack?")
	cf, err := abstract.Concretize([]DynLen{{ID: "length", Len: len(payload)}})
	if err != nil {
		t.Fatal(err)
	}

	wantTotal := 2 + len(payload)
	if cf.TotalLen != wantTotal {
		t.Fatalf("got TotalLen %d, want %d", cf.TotalLen, wantTotal)
	}

	msg := NewMessage(cf)
	if len(msg.IntoInner()) != wantTotal {
		t.Fatalf("message buffer is %d bytes, want %d", len(msg.IntoInner()), wantTotal)
	}
}

func TestConcretizeMissingDynamicSizeFails(t *testing.T) {
	abstract := Format{
		Name: "X",
		Fields: []Field{
			{Name: "payload", DType: DynamicArray("length")},
		},
	}
	if _, err := abstract.Concretize(nil); err == nil {
		t.Fatal("expected error when a dynamic field's size is unresolved")
	}
}

func TestGetDynamicArrays(t *testing.T) {
	abstract := Format{
		Name: "X",
		Fields: []Field{
			{Name: "length", DType: PrimitiveArray(Numeric(U16), 1)},
			{Name: "payload", DType: DynamicArray("length")},
			{Name: "payload_mac", DType: PrimitiveArray(Numeric(U8), 16)},
		},
	}
	dyn := abstract.GetDynamicArrays()
	if len(dyn) != 1 || dyn[0] != "length" {
		t.Fatalf("got %v, want [length]", dyn)
	}
}
