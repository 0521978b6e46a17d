package file

import (
	stderrors "errors"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/host"
	"github.com/wippyai/native-bridge/managed"
)

// File is a file reference: a carrier holding the native handle, the mode
// it was opened with and the path used to open it. A reference is used from
// one execution context at a time.
type File struct {
	sys     *System
	carrier *handle.Carrier
	path    string
	mode    Mode
	dir     bool
	stream  bool
}

// Path returns the path the reference was opened with, or the new path
// after a successful Rename.
func (f *File) Path() string { return f.path }

// Mode returns the open mode.
func (f *File) Mode() Mode { return f.mode }

// IsDir reports whether the reference names a directory.
func (f *File) IsDir() bool { return f.dir }

// IsOpen reports whether a native handle is bound.
func (f *File) IsOpen() bool { return f.carrier.Bound() }

// Carrier returns the managed object carrying the native handle.
func (f *File) Carrier() *handle.Carrier { return f.carrier }

func checkRange(op string, buf *managed.Object, off, n int) error {
	if buf == nil {
		return errors.InvalidArgument(errors.PhaseFile, op, "nil buffer")
	}
	if !buf.InRange(off, n) {
		return errors.New(errors.PhaseFile, errors.KindInvalidArgument).
			Op(op).
			Detail("range [%d,%d) outside buffer of %d bytes", off, off+n, buf.Len()).
			Build()
	}
	return nil
}

// with runs fn with the host file while the carrier and buf are pinned.
func (f *File) with(op string, fn func(host.File) error, buf ...*managed.Object) error {
	return f.carrier.Use(op, func(r io.Closer) error {
		hf, err := handle.As[host.File](op, r)
		if err != nil {
			return err
		}
		return fn(hf)
	}, buf...)
}

// Read reads up to n bytes into buf[off:]. Reading at end of file returns
// 0 and no error. A short count means end of file was reached.
func (f *File) Read(buf *managed.Object, off, n int) (int, error) {
	if err := checkRange("readBytes", buf, off, n); err != nil {
		return 0, err
	}
	var read int
	err := f.with("readBytes", func(hf host.File) error {
		var err error
		read, err = io.ReadFull(hf, buf.Bytes()[off:off+n])
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		return hostErr("readBytes", f.path, err)
	}, buf)
	if err != nil {
		return 0, err
	}
	return read, nil
}

// Write writes n bytes from buf[off:].
func (f *File) Write(buf *managed.Object, off, n int) (int, error) {
	if err := checkRange("writeBytes", buf, off, n); err != nil {
		return 0, err
	}
	if f.mode == ReadOnly && f.IsOpen() {
		return 0, errors.AccessDenied(errors.PhaseFile, "writeBytes", f.path)
	}
	var written int
	err := f.with("writeBytes", func(hf host.File) error {
		var err error
		written, err = hf.Write(buf.Bytes()[off : off+n])
		return hostErr("writeBytes", f.path, err)
	}, buf)
	return written, err
}

// SetPosition moves the file position to an absolute offset.
func (f *File) SetPosition(pos int64) error {
	if pos < 0 {
		return errors.InvalidArgument(errors.PhaseFile, "setPos", "negative position")
	}
	return f.with("setPos", func(hf host.File) error {
		_, err := hf.Seek(pos, io.SeekStart)
		return hostErr("setPos", f.path, err)
	})
}

// SetSize truncates or extends the file.
func (f *File) SetSize(size int64) error {
	if size < 0 {
		return errors.InvalidArgument(errors.PhaseFile, "setSize", "negative size")
	}
	return f.with("setSize", func(hf host.File) error {
		return hostErr("setSize", f.path, hf.Truncate(size))
	})
}

// Flush commits written data to the host.
func (f *File) Flush() error {
	return f.with("flush", func(hf host.File) error {
		return hostErr("flush", f.path, hf.Sync())
	})
}

// Close releases the native handle. Closing an unbound reference succeeds.
// Directory references always close successfully.
func (f *File) Close() error {
	if !f.IsOpen() {
		return nil
	}
	err := f.carrier.Release()
	Logger().Debug("file closed", zap.String("path", f.path), zap.Error(err))
	if f.dir {
		return nil
	}
	return hostErr("close", f.path, err)
}

// Delete removes the file or empty directory. An open regular file is
// closed first.
func (f *File) Delete() error {
	if f.stream {
		return errors.Unsupported(errors.PhaseFile, "delete", "descriptor stream")
	}
	st, err := f.sys.host.Stat(f.path)
	if err != nil {
		return hostErr("delete", f.path, err)
	}

	if st.IsDir() {
		_ = f.carrier.Release()
		return hostErr("delete", f.path, f.sys.host.Rmdir(f.path))
	}

	if f.IsOpen() {
		if err := f.carrier.Release(); err != nil {
			Logger().Warn("close before delete failed", zap.String("path", f.path), zap.Error(err))
		}
	}
	return hostErr("delete", f.path, f.sys.host.Unlink(f.path))
}

// Rename moves the file to newPath. An open reference is closed first, so
// later handle operations fail with InvalidHandle.
func (f *File) Rename(newPath string) error {
	if newPath == "" {
		return errors.InvalidArgument(errors.PhaseFile, "rename", "empty path")
	}
	if f.stream {
		return errors.Unsupported(errors.PhaseFile, "rename", "descriptor stream")
	}
	if f.IsOpen() {
		if err := f.carrier.Release(); err != nil {
			Logger().Warn("close before rename failed", zap.String("path", f.path), zap.Error(err))
		}
	}
	if err := f.sys.host.Rename(f.path, newPath); err != nil {
		return hostErr("rename", f.path, err)
	}
	Logger().Debug("file renamed", zap.String("from", f.path), zap.String("to", newPath))
	f.path = newPath
	return nil
}

func (f *File) stat(op string) (host.Stat, error) {
	if !f.IsOpen() && f.stream {
		return host.Stat{}, errors.InvalidHandle(errors.PhaseFile, op)
	}
	if !f.IsOpen() {
		st, err := f.sys.host.Stat(f.path)
		return st, hostErr(op, f.path, err)
	}
	var st host.Stat
	err := f.with(op, func(hf host.File) error {
		var err error
		st, err = hf.Stat()
		return hostErr(op, f.path, err)
	})
	return st, err
}

// Attributes reports the read-only and archive bits. Archive marks a
// regular file.
func (f *File) Attributes() (Attr, error) {
	st, err := f.stat("getAttributes")
	if err != nil {
		return AttrNormal, err
	}
	attrs := AttrNormal
	if st.Mode&0o600 == 0o400 {
		attrs |= AttrReadOnly
	}
	if st.IsRegular() {
		attrs |= AttrArchive
	}
	return attrs, nil
}

// SetAttributes applies the read-only bit by toggling owner write
// permission. Other bits are ignored.
func (f *File) SetAttributes(attrs Attr) error {
	st, err := f.stat("setAttributes")
	if err != nil {
		return err
	}
	perm := st.Mode.Perm()
	if attrs&AttrReadOnly != 0 {
		perm &^= 0o200
	} else {
		perm |= 0o200
	}
	if perm == st.Mode.Perm() {
		return nil
	}
	return hostErr("setAttributes", f.path, f.sys.host.Chmod(f.path, perm))
}

// Size returns the size of the open file, or of the path when unbound.
func (f *File) Size() (int32, error) {
	if !f.IsOpen() {
		return f.sys.Size(f.path)
	}
	st, err := f.stat("getSize")
	if err != nil {
		return 0, err
	}
	return clamp32(st.Size), nil
}
