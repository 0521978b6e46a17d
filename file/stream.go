package file

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/host"
	"github.com/wippyai/native-bridge/resource"
)

// StreamType selects the direction of a descriptor stream.
type StreamType int

const (
	StreamInput  StreamType = 0
	StreamOutput StreamType = 1
)

// Stream wraps an open process descriptor, such as one end of a child
// process pipe, in a bound reference. Input streams are read-only. The
// reference owns fd and closes it on Close. It has no path, so Delete and
// Rename are unsupported.
func (s *System) Stream(fd int, typ StreamType) (*File, error) {
	if fd < 0 {
		return nil, errors.InvalidArgument(errors.PhaseFile, "stream", "negative descriptor "+strconv.Itoa(fd))
	}
	mode := ReadWrite
	switch typ {
	case StreamInput:
		mode = ReadOnly
	case StreamOutput:
	default:
		return nil, errors.InvalidArgument(errors.PhaseFile, "stream", "unknown stream type "+strconv.Itoa(int(typ)))
	}

	name := "/dev/fd/" + strconv.Itoa(fd)
	hf, err := host.OpenDescriptor(uintptr(fd), name)
	if err != nil {
		return nil, hostErr("stream", name, err)
	}
	carrier, err := handle.NewCarrier(s.heap, s.table)
	if err != nil {
		_ = hf.Close()
		return nil, err
	}
	if _, err := carrier.Bind(resource.KindFile, hf); err != nil {
		_ = hf.Close()
		return nil, err
	}

	Logger().Debug("descriptor stream opened", zap.Int("fd", fd), zap.Stringer("mode", mode))
	return &File{sys: s, carrier: carrier, path: name, mode: mode, stream: true}, nil
}

// CardInserted reports whether the storage card in slot is present. Hosts
// without removable cards always report one.
func (s *System) CardInserted(slot int) bool { return true }

// CardSerialNumber returns the serial number of the card in slot. Hosts
// without removable cards report an empty serial.
func (s *System) CardSerialNumber(slot int) (string, error) { return "", nil }
