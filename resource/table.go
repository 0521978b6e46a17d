package resource

import (
	"errors"
	"io"
	"sync"
)

// Table manages host resources with kind information and observer support.
type Table struct {
	backend   *LocalBackend
	observers map[int]Observer
	nextObs   int
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend:   NewLocalBackend(),
		observers: make(map[int]Observer),
	}
}

// Insert adds a value and returns its handle. It returns 0 once the table is closed.
func (t *Table) Insert(kind Kind, value any) Handle {
	handle, err := t.backend.Create(kind, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it has the expected kind.
func (t *Table) GetTyped(handle Handle, kind Kind) (any, bool) {
	actual, ok := t.backend.Kind(handle)
	if !ok || actual != kind {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a resource from the table and returns (value, true) if found.
// The value is not closed; that is the caller's job.
func (t *Table) Remove(handle Handle) (any, bool) {
	kind, _ := t.backend.Kind(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it again.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	id := t.nextObs
	t.nextObs++
	t.observers[id] = o

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		delete(t.observers, id)
	}
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all live resources until fn returns false.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.backend.Each(fn)
}

// Close releases every resource still in the table and stops accepting
// inserts. Each leftover is reported as EventLeaked and closed if it
// implements io.Closer. Close errors are joined.
func (t *Table) Close() error {
	type leftover struct {
		value  any
		handle Handle
		kind   Kind
	}
	var leaked []leftover
	t.backend.Each(func(h Handle, k Kind, v any) bool {
		leaked = append(leaked, leftover{value: v, handle: h, kind: k})
		return true
	})

	var errs []error
	for _, l := range leaked {
		if _, ok := t.backend.Drop(l.handle); !ok {
			continue
		}
		t.notify(Event{
			Type:   EventLeaked,
			Handle: l.handle,
			Kind:   l.kind,
			Value:  l.value,
		})
		if c, ok := l.value.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := t.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
