package file

import (
	"io/fs"
	"math"
	"strconv"
	"time"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/host"
)

// Mode is the open mode of a file reference.
type Mode int

const (
	// DontOpen creates a path-only reference with no native handle.
	DontOpen Mode = iota
	// ReadWrite opens an existing file for reading and writing.
	ReadWrite
	// ReadOnly opens an existing file for reading.
	ReadOnly
	// Create opens an existing file without truncating it, or creates it.
	Create
	// CreateEmpty truncates an existing file, or creates it.
	CreateEmpty
)

func (m Mode) String() string {
	switch m {
	case DontOpen:
		return "dont_open"
	case ReadWrite:
		return "read_write"
	case ReadOnly:
		return "read_only"
	case Create:
		return "create"
	case CreateEmpty:
		return "create_empty"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

func (m Mode) valid() bool {
	return m >= DontOpen && m <= CreateEmpty
}

func (m Mode) hostFlag() host.Flag {
	switch m {
	case ReadWrite:
		return host.ReadWrite
	case Create:
		return host.ReadWrite | host.Create
	case CreateEmpty:
		return host.ReadWrite | host.Create | host.Truncate
	default:
		return host.ReadOnly
	}
}

func (m Mode) creates() bool {
	return m == Create || m == CreateEmpty
}

// Attr is a set of file attribute bits.
type Attr int

const (
	AttrNormal   Attr = 0
	AttrArchive  Attr = 1
	AttrHidden   Attr = 2
	AttrReadOnly Attr = 4
	AttrSystem   Attr = 8
)

// Which selects timestamps in Time and SetTime.
type Which int

const (
	TimeCreated  Which = 1
	TimeModified Which = 2
	TimeAccessed Which = 4
	TimeAll            = TimeCreated | TimeModified | TimeAccessed
)

// Time is a timestamp in local time with second resolution.
type Time struct {
	Year   int // full year, not an offset
	Month  int // 1-12
	Day    int
	Hour   int
	Minute int
	Second int
	Millis int // always 0 when read, ignored when written
}

// TimeOf converts t to local time with Millis cleared.
func TimeOf(t time.Time) Time {
	t = t.Local()
	return Time{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Std returns the timestamp as a time.Time in the local zone.
func (t Time) Std() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.Local)
}

func (t Time) valid() bool {
	return t.Month >= 1 && t.Month <= 12 &&
		t.Day >= 1 && t.Day <= 31 &&
		t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59 &&
		t.Second >= 0 && t.Second <= 60
}

// NoChange makes Chmod report the current permissions without changing them.
const NoChange = -1

// PermissionFromDecimal converts the decimal-as-octal form (755) into
// permission bits (0o755). A fourth leading digit carries the setuid (4),
// setgid (2) and sticky (1) bits.
func PermissionFromDecimal(v int) (fs.FileMode, error) {
	if v < 0 || v > 7777 {
		return 0, errors.InvalidArgument(errors.PhaseFile, "chmod", "permission out of range: "+strconv.Itoa(v))
	}
	var octal uint32
	for shift, rest := 0, v; rest > 0; shift += 3 {
		d := rest % 10
		if d > 7 {
			return 0, errors.InvalidArgument(errors.PhaseFile, "chmod", "not an octal digit in "+strconv.Itoa(v))
		}
		octal |= uint32(d) << shift
		rest /= 10
	}

	perm := fs.FileMode(octal & 0o777)
	if octal&0o4000 != 0 {
		perm |= fs.ModeSetuid
	}
	if octal&0o2000 != 0 {
		perm |= fs.ModeSetgid
	}
	if octal&0o1000 != 0 {
		perm |= fs.ModeSticky
	}
	return perm, nil
}

// unixBits folds the Go special mode bits back into their octal positions.
func unixBits(perm fs.FileMode) uint64 {
	v := uint64(perm.Perm())
	if perm&fs.ModeSetuid != 0 {
		v |= 0o4000
	}
	if perm&fs.ModeSetgid != 0 {
		v |= 0o2000
	}
	if perm&fs.ModeSticky != 0 {
		v |= 0o1000
	}
	return v
}

// PermissionToDecimal converts permission bits into the decimal-as-octal form.
func PermissionToDecimal(perm fs.FileMode) int {
	v, _ := strconv.Atoi(strconv.FormatUint(unixBits(perm), 8))
	return v
}

// ParsePermission parses the text form, for example "644".
func ParsePermission(s string) (fs.FileMode, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(errors.PhaseFile, errors.KindInvalidArgument).
			Op("chmod").
			Detail("malformed permission %q", s).
			Cause(err).
			Build()
	}
	return PermissionFromDecimal(v)
}

// FormatPermission renders permission bits in the text form.
func FormatPermission(perm fs.FileMode) string {
	return strconv.FormatUint(unixBits(perm), 8)
}

func clamp32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < 0 {
		return 0
	}
	return int32(v)
}

func clampU32(v uint64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func hostErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.FromHost(errors.PhaseFile, op, path, err)
}
