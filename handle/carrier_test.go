package handle

import (
	"encoding/binary"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
)

type fakeResource struct {
	closes atomic.Int32
	err    error
}

func (f *fakeResource) Close() error {
	f.closes.Add(1)
	return f.err
}

func newCarrier(t *testing.T) (*Carrier, *managed.Heap, *resource.Table) {
	t.Helper()
	heap := managed.NewHeap(0)
	table := resource.NewTable()
	c, err := NewCarrier(heap, table)
	if err != nil {
		t.Fatalf("NewCarrier failed: %v", err)
	}
	return c, heap, table
}

func TestCarrier_BindWritesHandle(t *testing.T) {
	c, _, table := newCarrier(t)

	if c.Bound() {
		t.Fatal("new carrier should be unbound")
	}
	if c.Object().Len() != Size {
		t.Fatalf("storage len = %d, want %d", c.Object().Len(), Size)
	}

	h, err := c.Bind(resource.KindFile, &fakeResource{})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if h == 0 {
		t.Fatal("bound handle must be non-zero")
	}
	if got := binary.LittleEndian.Uint32(c.Object().Bytes()); got != uint32(h) {
		t.Errorf("storage holds %d, want %d", got, h)
	}
	if c.Object().State() != managed.Locked {
		t.Error("bound carrier should be LOCKED")
	}
	if table.Len() != 1 {
		t.Errorf("table.Len = %d, want 1", table.Len())
	}
}

func TestCarrier_BindTwiceFails(t *testing.T) {
	c, _, table := newCarrier(t)

	if _, err := c.Bind(resource.KindFile, &fakeResource{}); err != nil {
		t.Fatal(err)
	}
	_, err := c.Bind(resource.KindFile, &fakeResource{})
	if !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("second Bind error = %v, want invalid_argument", err)
	}
	if table.Len() != 1 {
		t.Errorf("failed bind must not leak a table entry, Len = %d", table.Len())
	}
	if c.Object().Locks() != 1 {
		t.Errorf("failed bind must not pin, Locks = %d", c.Object().Locks())
	}
}

func TestCarrier_ResourceUnbound(t *testing.T) {
	c, _, _ := newCarrier(t)

	_, err := c.Resource("read")
	if !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("Resource on unbound carrier = %v, want invalid_handle", err)
	}
}

func TestCarrier_Release(t *testing.T) {
	c, _, table := newCarrier(t)
	r := &fakeResource{}
	if _, err := c.Bind(resource.KindFile, r); err != nil {
		t.Fatal(err)
	}

	if err := c.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}

	if r.closes.Load() != 1 {
		t.Errorf("resource closed %d times, want 1", r.closes.Load())
	}
	if c.Bound() || table.Len() != 0 {
		t.Error("carrier should be unbound and table empty")
	}
	if got := binary.LittleEndian.Uint32(c.Object().Bytes()); got != 0 {
		t.Errorf("storage holds %d after release, want 0", got)
	}
	if c.Object().State() != managed.Unlocked {
		t.Error("released carrier should be UNLOCKED")
	}
	if c.Object().Locks() != c.Object().Unlocks() {
		t.Errorf("lock imbalance: %d locks, %d unlocks", c.Object().Locks(), c.Object().Unlocks())
	}
}

func TestCarrier_ReleaseReportsCloseError(t *testing.T) {
	c, _, _ := newCarrier(t)
	boom := stderrors.New("boom")
	if _, err := c.Bind(resource.KindConnection, &fakeResource{err: boom}); err != nil {
		t.Fatal(err)
	}
	if err := c.Release(); !stderrors.Is(err, boom) {
		t.Fatalf("Release error = %v, want boom", err)
	}
	if c.Bound() {
		t.Error("carrier must be unbound even when close fails")
	}
}

func TestCarrier_ConcurrentRelease(t *testing.T) {
	c, _, _ := newCarrier(t)
	r := &fakeResource{}
	if _, err := c.Bind(resource.KindListener, r); err != nil {
		t.Fatal(err)
	}

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := c.Unbind(); ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners.Load() != 1 {
		t.Fatalf("%d callers received the resource, want exactly 1", winners.Load())
	}
	if c.Object().Locks() != c.Object().Unlocks() {
		t.Errorf("lock imbalance: %d locks, %d unlocks", c.Object().Locks(), c.Object().Unlocks())
	}
}

func TestCarrier_Exclusivity(t *testing.T) {
	heap := managed.NewHeap(0)
	table := resource.NewTable()

	live := make(map[resource.Handle]*Carrier)
	var carriers []*Carrier
	for i := 0; i < 64; i++ {
		c, err := NewCarrier(heap, table)
		if err != nil {
			t.Fatal(err)
		}
		carriers = append(carriers, c)
	}

	for round := 0; round < 4; round++ {
		for i, c := range carriers {
			if (i+round)%3 == 0 {
				if c.Bound() {
					delete(live, c.Handle())
					if err := c.Release(); err != nil {
						t.Fatal(err)
					}
				}
				continue
			}
			if c.Bound() {
				continue
			}
			h, err := c.Bind(resource.KindFile, &fakeResource{})
			if err != nil {
				t.Fatal(err)
			}
			if other, ok := live[h]; ok && other != c {
				t.Fatalf("handle %d bound to two carriers", h)
			}
			live[h] = c
		}
	}
}

func TestWithLocked_UnpinsOnEveryPath(t *testing.T) {
	heap := managed.NewHeap(0)
	a, _ := heap.Allocate(4)
	b, _ := heap.Allocate(4)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"success", func() error { return nil }},
		{"error", func() error { return io.ErrUnexpectedEOF }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var during [2]managed.LockState
			_ = WithLocked(heap, func() error {
				during = [2]managed.LockState{a.State(), b.State()}
				return tt.fn()
			}, a, nil, b)

			if during[0] != managed.Locked || during[1] != managed.Locked {
				t.Error("objects should be LOCKED inside fn")
			}
			if a.State() != managed.Unlocked || b.State() != managed.Unlocked {
				t.Error("objects should be UNLOCKED after return")
			}
		})
	}

	t.Run("panic", func(t *testing.T) {
		func() {
			defer func() { _ = recover() }()
			_ = WithLocked(heap, func() error { panic("native fault") }, a, b)
		}()
		if a.State() != managed.Unlocked || b.State() != managed.Unlocked {
			t.Error("objects should be UNLOCKED after panic")
		}
	})

	if a.Locks() != a.Unlocks() || b.Locks() != b.Unlocks() {
		t.Errorf("lock imbalance: a %d/%d b %d/%d", a.Locks(), a.Unlocks(), b.Locks(), b.Unlocks())
	}
}

func TestCarrier_Use(t *testing.T) {
	c, heap, _ := newCarrier(t)
	buf, _ := heap.Allocate(8)

	err := c.Use("read", func(io.Closer) error { return nil }, buf)
	if !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("Use on unbound carrier = %v, want invalid_handle", err)
	}
	if buf.Locks() != 0 {
		t.Error("unbound Use must not pin")
	}

	r := &fakeResource{}
	if _, err := c.Bind(resource.KindFile, r); err != nil {
		t.Fatal(err)
	}
	var got io.Closer
	if err := c.Use("read", func(rc io.Closer) error {
		got = rc
		if buf.State() != managed.Locked {
			t.Error("buffer should be LOCKED during Use")
		}
		return nil
	}, buf); err != nil {
		t.Fatal(err)
	}
	if got != r {
		t.Error("Use should pass the bound resource")
	}
	if buf.State() != managed.Unlocked || buf.Locks() != buf.Unlocks() {
		t.Error("buffer should be UNLOCKED and balanced after Use")
	}
}

type ownedResource struct {
	fakeResource
	owner string
}

func TestCarrier_ResourceNeverCrossesCarriers(t *testing.T) {
	heap := managed.NewHeap(0)
	table := resource.NewTable()
	a, _ := NewCarrier(heap, table)
	b, _ := NewCarrier(heap, table)
	ra := &ownedResource{owner: "a"}
	rb := &ownedResource{owner: "b"}

	stop := make(chan struct{})
	var foreign atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			r, err := a.Resource("read")
			if err != nil {
				continue
			}
			if r.(*ownedResource).owner != "a" {
				foreign.Add(1)
			}
		}
	}()

	// Releasing a then binding b reuses the same handle value.
	for i := 0; i < 20000; i++ {
		if _, err := a.Bind(resource.KindFile, ra); err != nil {
			t.Fatal(err)
		}
		_ = a.Release()
		if _, err := b.Bind(resource.KindFile, rb); err != nil {
			t.Fatal(err)
		}
		_ = b.Release()
	}
	close(stop)
	wg.Wait()

	if n := foreign.Load(); n != 0 {
		t.Fatalf("carrier a resolved another carrier's resource %d times", n)
	}
}

func TestCarrier_ResourceChecksKindAndTable(t *testing.T) {
	c, _, table := newCarrier(t)
	if _, err := c.Bind(resource.KindListener, &fakeResource{}); err != nil {
		t.Fatal(err)
	}
	if k, ok := c.Kind(); !ok || k != resource.KindListener {
		t.Errorf("Kind() = %v, %v", k, ok)
	}

	r, err := c.Resource("accept")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := As[io.Reader]("accept", r); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Errorf("As with the wrong type = %v, want invalid_handle", err)
	}
	if _, err := As[io.Closer]("accept", r); err != nil {
		t.Errorf("As[io.Closer] = %v", err)
	}

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Resource("accept"); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Errorf("Resource after table close = %v, want invalid_handle", err)
	}
	if _, ok := c.Unbind(); ok {
		t.Error("Unbind after table close must not hand back a resource the table already released")
	}
	if c.Object().State() != managed.Unlocked {
		t.Error("carrier should be UNLOCKED after unbind")
	}
}
