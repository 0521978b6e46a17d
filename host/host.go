package host

import (
	"io"
	"io/fs"
	"os"
	"time"
)

// Flag selects how Open treats the path.
type Flag int

const (
	// ReadOnly opens an existing path for reading.
	ReadOnly Flag = 0
	// ReadWrite opens an existing path for reading and writing.
	ReadWrite Flag = 1
	// Create creates the path when it is missing.
	Create Flag = 2
	// Truncate empties an existing file.
	Truncate Flag = 4
)

func (f Flag) osFlag() int {
	flag := os.O_RDONLY
	if f&ReadWrite != 0 {
		flag = os.O_RDWR
	}
	if f&Create != 0 {
		flag |= os.O_CREATE
	}
	if f&Truncate != 0 {
		flag |= os.O_TRUNC
	}
	return flag
}

// Stat is the subset of file status the bridge consumes.
type Stat struct {
	Atime time.Time
	Mtime time.Time
	Ctime time.Time // inode change time, reported as creation time
	Size  int64
	Mode  fs.FileMode
}

// IsDir reports whether the status describes a directory.
func (s Stat) IsDir() bool { return s.Mode.IsDir() }

// IsRegular reports whether the status describes a regular file.
func (s Stat) IsRegular() bool { return s.Mode.IsRegular() }

// Usage reports volume capacity in bytes.
type Usage struct {
	Total uint64
	Free  uint64
}

// File is an open host file.
type File interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
	Sync() error
	Stat() (Stat, error)
}

// Host is the set of file-system capabilities consumed by the bridge.
type Host interface {
	// Name identifies the implementation in logs.
	Name() string

	Open(path string, flag Flag, perm fs.FileMode) (File, error)
	Stat(path string) (Stat, error)
	Mkdir(path string, perm fs.FileMode) error
	Rmdir(path string) error
	Unlink(path string) error
	Rename(from, to string) error
	Chmod(path string, perm fs.FileMode) error

	// ReadDirNames lists a directory without the "." and ".." entries.
	ReadDirNames(path string) ([]string, error)

	// Utimes sets access and modification times. A zero time leaves the
	// corresponding value unchanged.
	Utimes(path string, atime, mtime time.Time) error

	Statfs(path string) (Usage, error)
}
