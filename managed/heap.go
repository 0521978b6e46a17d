package managed

import (
	"fmt"
	"sync"

	"github.com/wippyai/native-bridge/errors"
)

// Heap owns managed objects and decides when they may be reclaimed.
type Heap struct {
	objects map[uint64]*Object
	nextID  uint64
	limit   int
	used    int
	mu      sync.Mutex
}

// NewHeap creates a heap holding at most limit bytes of array storage.
// A limit of 0 means unbounded.
func NewHeap(limit int) *Heap {
	return &Heap{
		objects: make(map[uint64]*Object),
		limit:   limit,
	}
}

// Allocate creates a zeroed byte-array object of the given size.
func (h *Heap) Allocate(size int) (*Object, error) {
	if size < 0 {
		return nil, errors.InvalidArgument(errors.PhaseNative, "allocate", fmt.Sprintf("negative size %d", size))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.limit > 0 && h.used+size > h.limit {
		return nil, errors.New(errors.PhaseNative, errors.KindIOFailure).
			Op("allocate").
			Detail("out of memory: %d bytes requested, %d of %d in use", size, h.used, h.limit).
			Build()
	}

	o := h.newObjectLocked(ByteArrayType)
	o.data = make([]byte, size)
	h.used += size
	return o, nil
}

// CreateInstance creates an instance of a managed type with no storage.
func (h *Heap) CreateInstance(typeName string) (*Object, error) {
	if typeName == "" {
		return nil, errors.InvalidArgument(errors.PhaseNative, "createInstance", "empty type name")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newObjectLocked(typeName), nil
}

func (h *Heap) newObjectLocked(typeName string) *Object {
	h.nextID++
	o := &Object{id: h.nextID, typeName: typeName}
	h.objects[o.id] = o
	return o
}

// Pin moves an object to LOCKED. Pins nest.
func (h *Heap) Pin(o *Object) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reclaimed {
		panic(fmt.Sprintf("managed: pin of reclaimed object %d", o.id))
	}
	o.pins++
	o.locks++
}

// Unpin releases one pin. The object is UNLOCKED once every pin is released.
func (h *Heap) Unpin(o *Object) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pins == 0 {
		panic(fmt.Sprintf("managed: unpin of unlocked object %d", o.id))
	}
	o.pins--
	o.unlocks++
}

// Root keeps an object alive across collections regardless of its lock state.
func (h *Heap) Root(o *Object) {
	o.mu.Lock()
	o.rooted = true
	o.mu.Unlock()
}

// Unroot makes an object collectable again.
func (h *Heap) Unroot(o *Object) {
	o.mu.Lock()
	o.rooted = false
	o.mu.Unlock()
}

// Live returns the number of objects not yet reclaimed.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}

// Used returns the bytes of array storage currently allocated.
func (h *Heap) Used() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.used
}

// Collect reclaims every object that is not reachable from a rooted or
// LOCKED object through instance fields. It returns the number reclaimed.
func (h *Heap) Collect() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	marked := make(map[uint64]bool, len(h.objects))
	var stack []*Object
	for _, o := range h.objects {
		o.mu.Lock()
		live := o.rooted || o.pins > 0
		o.mu.Unlock()
		if live {
			marked[o.id] = true
			stack = append(stack, o)
		}
	}

	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ref := range o.references() {
			if !marked[ref.id] {
				marked[ref.id] = true
				stack = append(stack, ref)
			}
		}
	}

	reclaimed := 0
	for id, o := range h.objects {
		if marked[id] {
			continue
		}
		o.mu.Lock()
		if o.pins > 0 || o.rooted {
			o.mu.Unlock()
			continue
		}
		h.used -= len(o.data)
		o.data = nil
		o.fields = nil
		o.reclaimed = true
		o.mu.Unlock()
		delete(h.objects, id)
		reclaimed++
	}
	return reclaimed
}

// Compact relocates the storage of every UNLOCKED byte array. LOCKED objects
// keep their storage in place. It returns the number of objects moved.
func (h *Heap) Compact() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	moved := 0
	for _, o := range h.objects {
		o.mu.Lock()
		if o.pins == 0 && len(o.data) > 0 {
			relocated := make([]byte, len(o.data))
			copy(relocated, o.data)
			o.data = relocated
			moved++
		}
		o.mu.Unlock()
	}
	return moved
}

func (o *Object) references() []*Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	var refs []*Object
	for _, v := range o.fields {
		if ref, ok := v.(*Object); ok && ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}
