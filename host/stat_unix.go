//go:build linux || darwin || freebsd

package host

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	errNotDir error = syscall.ENOTDIR
	errIsDir  error = syscall.EISDIR
)

func statPath(path string) (Stat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Stat{}, err
	}
	s := statInfo(fi)

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err == nil {
		s.Atime = timespec(st.Atim)
		s.Ctime = timespec(st.Ctim)
	}
	return s, nil
}

func statFile(f *os.File) (Stat, error) {
	fi, err := f.Stat()
	if err != nil {
		return Stat{}, err
	}
	s := statInfo(fi)

	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err == nil {
		s.Atime = timespec(st.Atim)
		s.Ctime = timespec(st.Ctim)
	}
	return s, nil
}

func timespec(ts unix.Timespec) time.Time {
	sec, nsec := ts.Unix()
	return time.Unix(sec, nsec)
}

func statfs(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, &os.PathError{Op: "statfs", Path: path, Err: err}
	}
	bsize := uint64(st.Bsize)
	return Usage{
		Total: uint64(st.Blocks) * bsize,
		Free:  uint64(st.Bfree) * bsize,
	}, nil
}
