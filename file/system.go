package file

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/host"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
)

// NewFilePerm is applied to files the bridge creates, regardless of umask.
const NewFilePerm fs.FileMode = 0o666

// NewDirPerm is applied to directories the bridge creates.
const NewDirPerm fs.FileMode = 0o777

// System is the file abstraction over one host.
type System struct {
	host  host.Host
	heap  *managed.Heap
	table *resource.Table
}

// NewSystem creates a file system bound to a host, a heap for carriers and
// a handle table.
func NewSystem(h host.Host, heap *managed.Heap, table *resource.Table) *System {
	return &System{host: h, heap: heap, table: table}
}

// Host returns the underlying host.
func (s *System) Host() host.Host { return s.host }

// Heap returns the heap carriers are allocated on.
func (s *System) Heap() *managed.Heap { return s.heap }

// Create opens path in the given mode and returns a bound reference. With
// DontOpen the reference is returned unbound. A failed open leaves nothing
// bound.
func (s *System) Create(p string, mode Mode) (*File, error) {
	if p == "" {
		return nil, errors.InvalidArgument(errors.PhaseFile, "create", "empty path")
	}
	if !mode.valid() {
		return nil, errors.InvalidArgument(errors.PhaseFile, "create", "unknown mode "+mode.String())
	}

	carrier, err := handle.NewCarrier(s.heap, s.table)
	if err != nil {
		return nil, err
	}
	f := &File{sys: s, carrier: carrier, path: p, mode: mode}

	st, statErr := s.host.Stat(p)
	existed := statErr == nil
	f.dir = existed && st.IsDir()

	if mode == DontOpen {
		return f, nil
	}

	flag := mode.hostFlag()
	kind := resource.KindFile
	if f.dir {
		flag = host.ReadOnly
		kind = resource.KindDirectory
	}

	hf, err := s.host.Open(p, flag, NewFilePerm)
	if err != nil {
		return nil, hostErr("create", p, err)
	}

	if !existed && mode.creates() {
		if err := s.host.Chmod(p, NewFilePerm); err != nil {
			Logger().Warn("cannot widen permissions of new file", zap.String("path", p), zap.Error(err))
		}
	}

	h, err := carrier.Bind(kind, hf)
	if err != nil {
		_ = hf.Close()
		return nil, err
	}

	Logger().Debug("file opened",
		zap.String("path", p),
		zap.Stringer("mode", mode),
		zap.Bool("dir", f.dir),
		zap.Uint32("handle", uint32(h)))
	return f, nil
}

// Exists reports whether path names anything on the host.
func (s *System) Exists(p string) bool {
	_, err := s.host.Stat(p)
	return err == nil
}

// IsDirectory reports whether path names a directory.
func (s *System) IsDirectory(p string) bool {
	st, err := s.host.Stat(p)
	return err == nil && st.IsDir()
}

// IsEmpty reports whether path is an empty directory or a zero-length file.
// A missing path is empty.
func (s *System) IsEmpty(p string) (bool, error) {
	st, err := s.host.Stat(p)
	if err != nil {
		return true, nil
	}
	if !st.IsDir() {
		return st.Size == 0, nil
	}
	names, err := s.host.ReadDirNames(p)
	if err != nil {
		return false, hostErr("isEmpty", p, err)
	}
	for _, n := range names {
		if n != "." && n != ".." {
			return false, nil
		}
	}
	return true, nil
}

// CreateDirectory creates path and any missing parents. Directories created
// before a failure are left in place.
func (s *System) CreateDirectory(p string) error {
	if p == "" {
		return errors.InvalidArgument(errors.PhaseFile, "createDir", "empty path")
	}
	err := s.host.Mkdir(p, NewDirPerm)
	if err == nil {
		return nil
	}
	if !errors.IsKind(hostErr("createDir", p, err), errors.KindNotFound) {
		return hostErr("createDir", p, err)
	}

	prefix := ""
	if strings.HasPrefix(p, "/") {
		prefix = "/"
	}
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for _, seg := range segments[:len(segments)-1] {
		if seg == "" {
			continue
		}
		prefix = path.Join(prefix, seg)
		if _, err := s.host.Stat(prefix); err == nil {
			continue
		}
		if err := s.host.Mkdir(prefix, NewDirPerm); err != nil {
			return hostErr("createDir", prefix, err)
		}
		Logger().Debug("created parent directory", zap.String("path", prefix))
	}
	return hostErr("createDir", p, s.host.Mkdir(p, NewDirPerm))
}

// ListFiles returns the names in a directory in sorted order. Directory
// names carry a trailing "/".
func (s *System) ListFiles(p string) ([]string, error) {
	names, err := s.host.ReadDirNames(p)
	if err != nil {
		return nil, hostErr("listFiles", p, err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "." || n == ".." {
			continue
		}
		if st, err := s.host.Stat(path.Join(p, n)); err == nil && st.IsDir() {
			n += "/"
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Time returns one timestamp of path. With several bits set, creation wins
// over modification, which wins over access.
func (s *System) Time(p string, which Which) (Time, error) {
	st, err := s.host.Stat(p)
	if err != nil {
		return Time{}, hostErr("getTime", p, err)
	}
	switch {
	case which&TimeCreated != 0:
		return TimeOf(st.Ctime), nil
	case which&TimeModified != 0:
		return TimeOf(st.Mtime), nil
	case which&TimeAccessed != 0:
		return TimeOf(st.Atime), nil
	default:
		return Time{}, errors.InvalidArgument(errors.PhaseFile, "getTime", "no timestamp selected")
	}
}

// SetTime sets the modification and access times selected by which. The
// creation time cannot be set and is ignored.
func (s *System) SetTime(p string, which Which, t Time) error {
	if !t.valid() {
		return errors.InvalidArgument(errors.PhaseFile, "setTime", "malformed timestamp")
	}
	if _, err := s.host.Stat(p); err != nil {
		return hostErr("setTime", p, err)
	}

	var atime, mtime time.Time
	if which&TimeAccessed != 0 {
		atime = t.Std()
	}
	if which&TimeModified != 0 {
		mtime = t.Std()
	}
	if atime.IsZero() && mtime.IsZero() {
		return nil
	}
	return hostErr("setTime", p, s.host.Utimes(p, atime, mtime))
}

// FreeSpace returns the free bytes on the volume holding path.
func (s *System) FreeSpace(p string) (int32, error) {
	u, err := s.host.Statfs(p)
	if err != nil {
		return 0, hostErr("getFreeSpace", p, err)
	}
	return clampU32(u.Free), nil
}

// Chmod sets the permissions of path from the decimal-as-octal form and
// returns the previous permissions in the same form. NoChange only queries.
func (s *System) Chmod(p string, mode int) (int, error) {
	st, err := s.host.Stat(p)
	if err != nil {
		return 0, hostErr("chmod", p, err)
	}
	prev := PermissionToDecimal(st.Mode)
	if mode == NoChange {
		return prev, nil
	}

	perm, err := PermissionFromDecimal(mode)
	if err != nil {
		return 0, err
	}
	if err := s.host.Chmod(p, perm); err != nil {
		return 0, hostErr("chmod", p, err)
	}
	Logger().Debug("permissions changed", zap.String("path", p), zap.Int("from", prev), zap.Int("to", mode))
	return prev, nil
}

// Size returns the size of path: the total bytes of the volume for "/",
// otherwise the file size.
func (s *System) Size(p string) (int32, error) {
	if p == "/" {
		u, err := s.host.Statfs(p)
		if err != nil {
			return 0, hostErr("getSize", p, err)
		}
		return clampU32(u.Total), nil
	}
	st, err := s.host.Stat(p)
	if err != nil {
		return 0, hostErr("getSize", p, err)
	}
	return clamp32(st.Size), nil
}
