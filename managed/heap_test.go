package managed

import (
	"testing"

	"github.com/wippyai/native-bridge/errors"
)

func TestHeap_Allocate(t *testing.T) {
	h := NewHeap(16)

	o, err := h.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if o.Len() != 8 || o.TypeName() != ByteArrayType {
		t.Fatalf("got len=%d type=%q", o.Len(), o.TypeName())
	}
	if o.State() != Unlocked {
		t.Fatal("new objects start UNLOCKED")
	}

	if _, err := h.Allocate(9); !errors.IsKind(err, errors.KindIOFailure) {
		t.Fatalf("over-limit allocation error = %v", err)
	}
	if _, err := h.Allocate(-1); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("negative allocation error = %v", err)
	}
	if h.Used() != 8 {
		t.Fatalf("Used = %d, want 8", h.Used())
	}
}

func TestHeap_PinNesting(t *testing.T) {
	h := NewHeap(0)
	o, _ := h.Allocate(4)

	h.Pin(o)
	h.Pin(o)
	h.Unpin(o)
	if o.State() != Locked {
		t.Fatal("object should stay LOCKED while a pin remains")
	}
	h.Unpin(o)
	if o.State() != Unlocked {
		t.Fatal("object should be UNLOCKED after all pins released")
	}
	if o.Locks() != 2 || o.Unlocks() != 2 {
		t.Fatalf("locks=%d unlocks=%d, want 2/2", o.Locks(), o.Unlocks())
	}
}

func TestHeap_UnpinUnlockedPanics(t *testing.T) {
	h := NewHeap(0)
	o, _ := h.Allocate(1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	h.Unpin(o)
}

func TestHeap_CollectSparesLockedAndRooted(t *testing.T) {
	h := NewHeap(0)
	garbage, _ := h.Allocate(4)
	pinned, _ := h.Allocate(4)
	rooted, _ := h.CreateInstance("Server")
	child, _ := h.Allocate(4)
	rooted.SetField("nativeHandle", child)

	h.Pin(pinned)
	h.Root(rooted)

	if n := h.Collect(); n != 1 {
		t.Fatalf("Collect reclaimed %d, want 1", n)
	}
	if !garbage.Reclaimed() {
		t.Fatal("unreferenced unlocked object should be reclaimed")
	}
	if pinned.Reclaimed() || rooted.Reclaimed() || child.Reclaimed() {
		t.Fatal("pinned, rooted and reachable objects must survive")
	}

	h.Unpin(pinned)
	h.Unroot(rooted)
	if n := h.Collect(); n != 3 {
		t.Fatalf("second Collect reclaimed %d, want 3", n)
	}
	if h.Live() != 0 || h.Used() != 0 {
		t.Fatalf("Live=%d Used=%d after full collection", h.Live(), h.Used())
	}
}

func TestHeap_CompactLeavesLockedInPlace(t *testing.T) {
	h := NewHeap(0)
	locked, _ := h.Allocate(8)
	loose, _ := h.Allocate(8)

	h.Pin(locked)
	defer h.Unpin(locked)

	lockedBefore := &locked.Bytes()[0]
	looseBefore := &loose.Bytes()[0]
	loose.Bytes()[0] = 42

	if n := h.Compact(); n != 1 {
		t.Fatalf("Compact moved %d objects, want 1", n)
	}
	if &locked.Bytes()[0] != lockedBefore {
		t.Fatal("LOCKED storage must not move")
	}
	if &loose.Bytes()[0] == looseBefore {
		t.Fatal("UNLOCKED storage should have been relocated")
	}
	if loose.Bytes()[0] != 42 {
		t.Fatal("relocation must preserve contents")
	}
}

func TestHeap_PinReclaimedPanics(t *testing.T) {
	h := NewHeap(0)
	o, _ := h.Allocate(1)
	h.Collect()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	h.Pin(o)
}
