package hotkeys

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIgnoreMasks(t *testing.T) {
	got := ignoreMasks([]uint16{0x2, 0x10})
	slices.Sort(got)
	if diff := cmp.Diff([]uint16{0x2, 0x10, 0x12}, got); diff != "" {
		t.Fatalf("masks mismatch (-want +got):\n%s", diff)
	}
	if got := ignoreMasks(nil); len(got) != 0 {
		t.Fatalf("no base masks should give none, got %v", got)
	}
}

func TestRegisterEmptySequenceIsNoop(t *testing.T) {
	h := &Handler{}
	called := false
	if err := h.RegisterFunc("tile", "", func() { called = true }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	if called || len(h.registered) != 0 {
		t.Fatal("empty sequence should not register")
	}
}
