package host

import (
	"io/fs"
	"os"
	"time"
)

// OS is the process file system.
type OS struct{}

// NewOS returns the process file-system host.
func NewOS() *OS { return &OS{} }

func (*OS) Name() string { return "os" }

func (*OS) Open(path string, flag Flag, perm fs.FileMode) (File, error) {
	f, err := os.OpenFile(path, flag.osFlag(), perm)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (*OS) Stat(path string) (Stat, error) {
	return statPath(path)
}

func (*OS) Mkdir(path string, perm fs.FileMode) error {
	return os.Mkdir(path, perm)
}

func (*OS) Rmdir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: path, Err: errNotDir}
	}
	return os.Remove(path)
}

func (*OS) Unlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return &fs.PathError{Op: "unlink", Path: path, Err: errIsDir}
	}
	return os.Remove(path)
}

func (*OS) Rename(from, to string) error {
	return os.Rename(from, to)
}

func (*OS) Chmod(path string, perm fs.FileMode) error {
	return os.Chmod(path, perm)
}

func (*OS) ReadDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (*OS) Utimes(path string, atime, mtime time.Time) error {
	return os.Chtimes(path, atime, mtime)
}

func (*OS) Statfs(path string) (Usage, error) {
	return statfs(path)
}

// OpenDescriptor wraps an open process descriptor. The returned file owns
// fd and closes it on Close.
func OpenDescriptor(fd uintptr, name string) (File, error) {
	f := os.NewFile(fd, name)
	if f == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if _, err := f.Stat(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &osFile{f: f}, nil
}

type osFile struct {
	f *os.File
}

func (o *osFile) Read(p []byte) (int, error)  { return o.f.Read(p) }
func (o *osFile) Write(p []byte) (int, error) { return o.f.Write(p) }
func (o *osFile) Close() error                { return o.f.Close() }
func (o *osFile) Sync() error                 { return o.f.Sync() }

func (o *osFile) Seek(offset int64, whence int) (int64, error) {
	return o.f.Seek(offset, whence)
}

func (o *osFile) Truncate(size int64) error {
	return o.f.Truncate(size)
}

func (o *osFile) Stat() (Stat, error) {
	return statFile(o.f)
}

// statInfo fills a Stat from portable file info. Access and change times
// fall back to the modification time.
func statInfo(fi fs.FileInfo) Stat {
	return Stat{
		Mode:  fi.Mode(),
		Size:  fi.Size(),
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
		Ctime: fi.ModTime(),
	}
}
