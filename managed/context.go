package managed

import (
	stderrors "errors"

	"github.com/wippyai/native-bridge/errors"
)

// Exception is an error raised into managed code.
type Exception struct {
	Cause   error
	Kind    errors.Kind
	Message string
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Exception) Unwrap() error { return e.Cause }

// Context is one managed execution context. It holds at most one pending
// exception, like the thrown-exception slot of an interpreter thread.
type Context struct {
	heap    *Heap
	pending *Exception
	name    string
}

// NewContext creates an execution context bound to the heap.
func (h *Heap) NewContext(name string) *Context {
	return &Context{heap: h, name: name}
}

// Heap returns the heap the context allocates from.
func (c *Context) Heap() *Heap { return c.heap }

// Name returns the context's name.
func (c *Context) Name() string { return c.name }

// Raise records a pending exception of the given kind.
func (c *Context) Raise(kind errors.Kind, message string) *Exception {
	c.pending = &Exception{Kind: kind, Message: message}
	return c.pending
}

// Throw converts err into a pending exception. A nil error throws nothing.
func (c *Context) Throw(err error) *Exception {
	if err == nil {
		return nil
	}
	var exc *Exception
	if stderrors.As(err, &exc) {
		c.pending = exc
		return exc
	}
	c.pending = &Exception{
		Kind:    errors.KindOf(err),
		Message: err.Error(),
		Cause:   err,
	}
	return c.pending
}

// Pending returns the pending exception, or nil.
func (c *Context) Pending() *Exception { return c.pending }

// Clear removes and returns the pending exception.
func (c *Context) Clear() *Exception {
	exc := c.pending
	c.pending = nil
	return exc
}
