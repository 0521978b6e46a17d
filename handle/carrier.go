package handle

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
)

// Size is the number of bytes a handle occupies in its carrier's storage.
const Size = 4

// binding is one attachment of a host resource to a carrier.
type binding struct {
	r    io.Closer
	h    resource.Handle
	kind resource.Kind
}

// Carrier is the managed object that owns one native handle. The carrier
// keeps its own binding, so a handle value reused by another carrier after
// an unbind can never resolve to that carrier's resource.
type Carrier struct {
	heap  *managed.Heap
	table *resource.Table
	obj   *managed.Object
	bound atomic.Pointer[binding]
}

// NewCarrier allocates an unbound carrier.
func NewCarrier(heap *managed.Heap, table *resource.Table) (*Carrier, error) {
	obj, err := heap.Allocate(Size)
	if err != nil {
		return nil, err
	}
	return &Carrier{heap: heap, table: table, obj: obj}, nil
}

// Object returns the managed byte array that stores the handle.
func (c *Carrier) Object() *managed.Object { return c.obj }

// Handle returns the bound handle, or 0.
func (c *Carrier) Handle() resource.Handle {
	if b := c.bound.Load(); b != nil {
		return b.h
	}
	return 0
}

// Kind returns the kind of the bound resource.
func (c *Carrier) Kind() (resource.Kind, bool) {
	if b := c.bound.Load(); b != nil {
		return b.kind, true
	}
	return 0, false
}

// Bound reports whether a host resource is attached.
func (c *Carrier) Bound() bool {
	return c.bound.Load() != nil
}

// Bind attaches a host resource. The carrier object stays LOCKED until the
// resource is unbound.
func (c *Carrier) Bind(kind resource.Kind, r io.Closer) (resource.Handle, error) {
	if c.Bound() {
		return 0, errors.InvalidArgument(errors.PhaseHandle, "bind", "carrier already bound")
	}

	h := c.table.Insert(kind, r)
	if h == 0 {
		return 0, errors.New(errors.PhaseHandle, errors.KindInvalidHandle).
			Op("bind").
			Detail("handle table closed").
			Build()
	}

	c.heap.Pin(c.obj)
	if !c.bound.CompareAndSwap(nil, &binding{r: r, h: h, kind: kind}) {
		c.heap.Unpin(c.obj)
		c.table.Remove(h)
		return 0, errors.InvalidArgument(errors.PhaseHandle, "bind", "carrier already bound")
	}
	binary.LittleEndian.PutUint32(c.obj.Bytes(), uint32(h))

	Logger().Debug("bound handle", zap.Uint32("handle", uint32(h)), zap.Stringer("kind", kind))
	return h, nil
}

// Resource returns the bound host resource. It fails with InvalidHandle
// when the carrier is unbound or the table no longer holds its handle.
func (c *Carrier) Resource(op string) (io.Closer, error) {
	b := c.bound.Load()
	if b == nil {
		return nil, errors.InvalidHandle(errors.PhaseHandle, op)
	}
	if _, ok := c.table.GetTyped(b.h, b.kind); !ok {
		return nil, errors.InvalidHandle(errors.PhaseHandle, op)
	}
	return b.r, nil
}

// As narrows a bound resource to T.
func As[T any](op string, r io.Closer) (T, error) {
	v, ok := r.(T)
	if !ok {
		var zero T
		return zero, errors.New(errors.PhaseHandle, errors.KindInvalidHandle).
			Op(op).
			Detail("handle holds %T", r).
			Build()
	}
	return v, nil
}

// Unbind detaches the host resource without closing it. Of several
// concurrent callers exactly one receives the resource.
func (c *Carrier) Unbind() (io.Closer, bool) {
	b := c.bound.Swap(nil)
	if b == nil {
		return nil, false
	}

	binary.LittleEndian.PutUint32(c.obj.Bytes(), 0)
	_, owned := c.table.Remove(b.h)
	c.heap.Unpin(c.obj)
	if !owned {
		// the table was closed and already released the resource
		return nil, false
	}
	return b.r, b.r != nil
}

// Release unbinds and closes the host resource. Releasing an unbound carrier
// is a no-op.
func (c *Carrier) Release() error {
	r, ok := c.Unbind()
	if !ok {
		return nil
	}
	return r.Close()
}
