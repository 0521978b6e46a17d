package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which component raised the error
type Phase string

const (
	PhaseHandle  Phase = "handle"  // handle binding and lock discipline
	PhaseFile    Phase = "file"    // file abstraction
	PhaseService Phase = "service" // blocking connection services
	PhaseDisplay Phase = "display" // display surface bridge
	PhaseConfig  Phase = "config"  // configuration loading
	PhaseNative  Phase = "native"  // native method dispatch
)

// Kind categorizes the error. The set is closed.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindAccessDenied     Kind = "access_denied"
	KindAlreadyExists    Kind = "already_exists"
	KindInvalidHandle    Kind = "invalid_handle"
	KindInvalidArgument  Kind = "invalid_argument"
	KindIOFailure        Kind = "io_failure"
	KindOperationAborted Kind = "operation_aborted"
	KindNotSupported     Kind = "not_supported"
)

// Kinds lists every error kind.
var Kinds = []Kind{
	KindNotFound,
	KindAccessDenied,
	KindAlreadyExists,
	KindInvalidHandle,
	KindInvalidArgument,
	KindIOFailure,
	KindOperationAborted,
	KindNotSupported,
}

// Error is the structured error type returned by every native operation
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Path   string
	Detail string
	Code   uint16 // host errno, 0 when not host-originated
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteByte(' ')
		b.WriteString(e.Op)
	}

	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
// Errors from outside the taxonomy report KindIOFailure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindIOFailure
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Path sets the file or endpoint path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Code sets the host errno
func (b *Builder) Code(code uint16) *Builder {
	b.err.Code = code
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, op, path string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindNotFound,
		Op:    op,
		Path:  path,
	}
}

// AccessDenied creates an access-denied error
func AccessDenied(phase Phase, op, path string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindAccessDenied,
		Op:    op,
		Path:  path,
	}
}

// InvalidHandle creates an error for an operation on an unbound handle
func InvalidHandle(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Op:     op,
		Detail: "handle is not bound",
	}
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Op:     op,
		Detail: detail,
	}
}

// IOFailure creates a generic host failure error
func IOFailure(phase Phase, op string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindIOFailure,
		Op:    op,
		Cause: cause,
	}
}

// Aborted creates an error for a blocking operation interrupted by a concurrent close
func Aborted(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOperationAborted,
		Op:     op,
		Detail: "closed while blocked",
	}
}

// Unsupported creates an unsupported capability error
func Unsupported(phase Phase, op, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotSupported,
		Op:     op,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
