package host

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	experimentalsys "github.com/tetratelabs/wazero/experimental/sys"
	"github.com/tetratelabs/wazero/experimental/sysfs"
	"github.com/tetratelabs/wazero/sys"
)

// Sandbox is a file system rooted at a host directory.
type Sandbox struct {
	fs   experimentalsys.FS
	root string
}

// NewSandbox roots a sandbox at dir, which must be an existing directory.
func NewSandbox(dir string) (*Sandbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &fs.PathError{Op: "sandbox", Path: abs, Err: errNotDir}
	}
	return &Sandbox{fs: sysfs.DirFS(abs), root: abs}, nil
}

// Root returns the host directory backing the sandbox.
func (s *Sandbox) Root() string { return s.root }

func (s *Sandbox) Name() string { return "sandbox" }

// rel resolves p to a path relative to the sandbox root.
func rel(p string) string {
	cleaned := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

func pathErr(op, p string, errno experimentalsys.Errno) error {
	if errno == 0 {
		return nil
	}
	return &fs.PathError{Op: op, Path: p, Err: errno}
}

func oflag(f Flag) experimentalsys.Oflag {
	flag := experimentalsys.O_RDONLY
	if f&ReadWrite != 0 {
		flag = experimentalsys.O_RDWR
	}
	if f&Create != 0 {
		flag |= experimentalsys.O_CREAT
	}
	if f&Truncate != 0 {
		flag |= experimentalsys.O_TRUNC
	}
	return flag
}

func (s *Sandbox) Open(p string, flag Flag, perm fs.FileMode) (File, error) {
	f, errno := s.fs.OpenFile(rel(p), oflag(flag), perm)
	if errno != 0 {
		return nil, pathErr("open", p, errno)
	}
	return &sandboxFile{f: f, path: p}, nil
}

func (s *Sandbox) Stat(p string) (Stat, error) {
	st, errno := s.fs.Stat(rel(p))
	if errno != 0 {
		return Stat{}, pathErr("stat", p, errno)
	}
	return fromStat(st), nil
}

func (s *Sandbox) Mkdir(p string, perm fs.FileMode) error {
	return pathErr("mkdir", p, s.fs.Mkdir(rel(p), perm))
}

func (s *Sandbox) Rmdir(p string) error {
	return pathErr("rmdir", p, s.fs.Rmdir(rel(p)))
}

func (s *Sandbox) Unlink(p string) error {
	return pathErr("unlink", p, s.fs.Unlink(rel(p)))
}

func (s *Sandbox) Rename(from, to string) error {
	return pathErr("rename", from, s.fs.Rename(rel(from), rel(to)))
}

func (s *Sandbox) Chmod(p string, perm fs.FileMode) error {
	return pathErr("chmod", p, s.fs.Chmod(rel(p), perm))
}

func (s *Sandbox) ReadDirNames(p string) ([]string, error) {
	dir, errno := s.fs.OpenFile(rel(p), experimentalsys.O_RDONLY|experimentalsys.O_DIRECTORY, 0)
	if errno != 0 {
		return nil, pathErr("readdir", p, errno)
	}
	defer dir.Close()

	dirents, errno := dir.Readdir(-1)
	if errno != 0 {
		return nil, pathErr("readdir", p, errno)
	}
	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if d.Name == "." || d.Name == ".." {
			continue
		}
		names = append(names, d.Name)
	}
	return names, nil
}

func (s *Sandbox) Utimes(p string, atime, mtime time.Time) error {
	return pathErr("utimes", p, s.fs.Utimens(rel(p), utime(atime), utime(mtime)))
}

func utime(t time.Time) int64 {
	if t.IsZero() {
		return experimentalsys.UTIME_OMIT
	}
	return t.UnixNano()
}

// Statfs reports the volume holding the sandbox root.
func (s *Sandbox) Statfs(string) (Usage, error) {
	return statfs(s.root)
}

func fromStat(st sys.Stat_t) Stat {
	return Stat{
		Mode:  st.Mode,
		Size:  st.Size,
		Atime: time.Unix(0, st.Atim),
		Mtime: time.Unix(0, st.Mtim),
		Ctime: time.Unix(0, st.Ctim),
	}
}

type sandboxFile struct {
	f    experimentalsys.File
	path string
}

func (s *sandboxFile) Read(p []byte) (int, error) {
	n, errno := s.f.Read(p)
	if errno != 0 {
		return n, pathErr("read", s.path, errno)
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *sandboxFile) Write(p []byte) (int, error) {
	n, errno := s.f.Write(p)
	return n, pathErr("write", s.path, errno)
}

func (s *sandboxFile) Seek(offset int64, whence int) (int64, error) {
	pos, errno := s.f.Seek(offset, whence)
	return pos, pathErr("seek", s.path, errno)
}

func (s *sandboxFile) Truncate(size int64) error {
	return pathErr("truncate", s.path, s.f.Truncate(size))
}

func (s *sandboxFile) Sync() error {
	return pathErr("sync", s.path, s.f.Sync())
}

func (s *sandboxFile) Stat() (Stat, error) {
	st, errno := s.f.Stat()
	if errno != 0 {
		return Stat{}, pathErr("fstat", s.path, errno)
	}
	return fromStat(st), nil
}

func (s *sandboxFile) Close() error {
	return pathErr("close", s.path, s.f.Close())
}
