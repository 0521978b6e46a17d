// Package errors provides the error taxonomy of the native bridge.
//
// Every native operation returns either a success value or exactly one *Error.
// Host failures of any shape (os.PathError, syscall.Errno, wazero sys.Errno)
// are funneled into a closed set of Kinds, so managed code sees the same
// error regardless of the host platform:
//
//	KindNotFound          no such path
//	KindAccessDenied      permission or read-only file system
//	KindAlreadyExists     path already present
//	KindInvalidHandle     operation on an unbound or released handle
//	KindInvalidArgument   malformed identifier, bad offset, bad mode
//	KindIOFailure         any other host failure
//	KindOperationAborted  a blocking accept was interrupted by close
//	KindNotSupported      host lacks the requested capability
//
// Errors carry the Phase (which component raised them), the operation, the
// path involved and the underlying cause:
//
//	err := errors.New(errors.PhaseFile, errors.KindNotFound).
//		Op("create").
//		Path("/data/app.db").
//		Cause(osErr).
//		Build()
//
// Host errors are translated with FromHost:
//
//	if err := f.Truncate(n); err != nil {
//		return errors.FromHost(errors.PhaseFile, "setSize", path, err)
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
