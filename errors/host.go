package errors

import (
	stderrors "errors"

	experimentalsys "github.com/tetratelabs/wazero/experimental/sys"
)

// FromHost converts a host error into the taxonomy. The error is first
// normalised to an errno, which covers *os.PathError, *os.LinkError,
// syscall.Errno and sys.Errno alike. Errors that already belong to the
// taxonomy are returned unchanged.
func FromHost(phase Phase, op, path string, err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var errno experimentalsys.Errno
	if !stderrors.As(err, &errno) {
		errno = experimentalsys.UnwrapOSError(err)
	}
	return &Error{
		Phase: phase,
		Kind:  KindOfErrno(errno),
		Op:    op,
		Path:  path,
		Code:  uint16(errno),
		Cause: err,
	}
}

// KindOfErrno maps a normalised errno onto the closed Kind set.
func KindOfErrno(errno experimentalsys.Errno) Kind {
	switch errno {
	case experimentalsys.ENOENT, experimentalsys.ENOTDIR:
		return KindNotFound
	case experimentalsys.EACCES, experimentalsys.EPERM, experimentalsys.EROFS:
		return KindAccessDenied
	case experimentalsys.EEXIST:
		return KindAlreadyExists
	case experimentalsys.EBADF:
		return KindInvalidHandle
	case experimentalsys.EINVAL, experimentalsys.ENAMETOOLONG:
		return KindInvalidArgument
	case experimentalsys.ENOSYS, experimentalsys.ENOTSUP:
		return KindNotSupported
	default:
		return KindIOFailure
	}
}
