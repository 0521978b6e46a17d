package bridge

import (
	"sort"
	"sync"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/managed"
)

// Native is the body of a native method. A returned error is raised on
// ctx by Invoke.
type Native func(ctx *managed.Context, args []any) (any, error)

// Registry maps qualified names such as "File.create" to natives.
type Registry struct {
	funcs map[string]Native
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Native)}
}

// Register adds a native. Names are unique.
func (r *Registry) Register(name string, fn Native) error {
	if name == "" {
		return errors.InvalidArgument(errors.PhaseNative, "register", "name cannot be empty")
	}
	if fn == nil {
		return errors.InvalidArgument(errors.PhaseNative, "register", name+": nil native")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return errors.New(errors.PhaseNative, errors.KindAlreadyExists).
			Op("register").
			Path(name).
			Build()
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the native registered under name.
func (r *Registry) Lookup(name string) (Native, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invoke runs the named native. On failure the error is raised on ctx and
// ok is false.
func (r *Registry) Invoke(ctx *managed.Context, name string, args ...any) (result any, ok bool) {
	fn, found := r.Lookup(name)
	if !found {
		ctx.Throw(errors.Unsupported(errors.PhaseNative, name, "native method"))
		return nil, false
	}
	result, err := fn(ctx, args)
	if err != nil {
		ctx.Throw(err)
		return nil, false
	}
	return result, true
}
