package handle

import (
	"io"

	"github.com/wippyai/native-bridge/managed"
)

// WithLocked pins every object, runs fn and unpins them again. The unpin
// happens on every exit path, including a panic inside fn. Nil objects are
// skipped.
func WithLocked(heap *managed.Heap, fn func() error, objs ...*managed.Object) error {
	pinned := make([]*managed.Object, 0, len(objs))
	defer func() {
		for i := len(pinned) - 1; i >= 0; i-- {
			heap.Unpin(pinned[i])
		}
	}()

	for _, o := range objs {
		if o == nil {
			continue
		}
		heap.Pin(o)
		pinned = append(pinned, o)
	}
	return fn()
}

// Use runs fn with the carrier's host resource while the carrier and the
// extra objects are pinned. An unbound carrier fails with InvalidHandle
// before anything is pinned.
func (c *Carrier) Use(op string, fn func(r io.Closer) error, objs ...*managed.Object) error {
	r, err := c.Resource(op)
	if err != nil {
		return err
	}
	all := make([]*managed.Object, 0, len(objs)+1)
	all = append(all, c.obj)
	all = append(all, objs...)
	return WithLocked(c.heap, func() error { return fn(r) }, all...)
}
