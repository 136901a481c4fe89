package engine

import "testing"

func TestHeapInsertGetRemove(t *testing.T) {
	h := NewHeap[[]byte]()
	h.Insert("a", []byte("hello"))

	got, err := h.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	taken, err := h.Remove("a")
	if err != nil {
		t.Fatal(err)
	}
	if string(taken) != "hello" {
		t.Fatalf("got %q, want %q", taken, "hello")
	}
	if h.Has("a") {
		t.Fatal("expected key to be gone after Remove")
	}
}

func TestHeapMissingKeyIsFatal(t *testing.T) {
	h := NewHeap[[]byte]()
	if _, err := h.Get("missing"); err != ErrHeapKeyMissing {
		t.Fatalf("got %v, want ErrHeapKeyMissing", err)
	}
	if _, err := h.Remove("missing"); err != ErrHeapKeyMissing {
		t.Fatalf("got %v, want ErrHeapKeyMissing", err)
	}
}

func TestHeapOverwriteIsPermitted(t *testing.T) {
	h := NewHeap[uint64]()
	h.Insert("n", 1)
	h.Insert("n", 2)
	got, err := h.Get("n")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}
