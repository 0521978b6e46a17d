package managed

import "sync"

// LockState is the collector-visible pin state of an object.
type LockState uint8

const (
	Unlocked LockState = iota
	Locked
)

func (s LockState) String() string {
	if s == Locked {
		return "LOCKED"
	}
	return "UNLOCKED"
}

// ByteArrayType is the type name of objects created by Heap.Allocate.
const ByteArrayType = "byte[]"

// Object is a managed heap object. Byte arrays carry raw storage; instances
// carry named fields.
type Object struct {
	fields    map[string]any
	typeName  string
	data      []byte
	id        uint64
	pins      int
	locks     uint64
	unlocks   uint64
	mu        sync.Mutex
	rooted    bool
	reclaimed bool
}

// ID returns the object's identity within its heap.
func (o *Object) ID() uint64 { return o.id }

// TypeName returns the managed type of the object.
func (o *Object) TypeName() string { return o.typeName }

// Len returns the size of the object's storage in bytes.
func (o *Object) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.data)
}

// Bytes returns the object's storage. The slice stays valid only while the
// object is LOCKED; an unlocked object may be relocated by Compact.
func (o *Object) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data
}

// InRange reports whether [off, off+n) lies inside the object's storage.
func (o *Object) InRange(off, n int) bool {
	size := o.Len()
	return off >= 0 && n >= 0 && off <= size && n <= size-off
}

// State reports whether the object is pinned.
func (o *Object) State() LockState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pins > 0 {
		return Locked
	}
	return Unlocked
}

// Locks returns how many times the object was pinned.
func (o *Object) Locks() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.locks
}

// Unlocks returns how many times the object was unpinned.
func (o *Object) Unlocks() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unlocks
}

// Reclaimed reports whether the collector freed the object.
func (o *Object) Reclaimed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reclaimed
}

// SetField stores a named field on an instance.
func (o *Object) SetField(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fields == nil {
		o.fields = make(map[string]any)
	}
	o.fields[name] = v
}

// Field returns a named field, or nil.
func (o *Object) Field(name string) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fields[name]
}
