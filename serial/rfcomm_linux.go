//go:build linux

package serial

import (
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/wippyai/native-bridge/errors"
)

// RFCOMM is a bluetooth serial-port transport. The "channel=N" parameter
// selects the RFCOMM channel, 1 by default. Service discovery records are
// not registered.
type RFCOMM struct{}

// NewRFCOMM returns the bluetooth transport.
func NewRFCOMM() *RFCOMM { return &RFCOMM{} }

func (*RFCOMM) Name() string { return "rfcomm" }

func (*RFCOMM) Listen(_ uuid.UUID, params []string) (Listener, error) {
	channel, err := intParam(params, "channel", 1)
	if err != nil {
		return nil, err
	}
	if channel < 1 || channel > 30 {
		return nil, errors.InvalidArgument(errors.PhaseService, "create", "rfcomm channel out of range: "+strconv.Itoa(channel))
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrRFCOMM{Channel: uint8(channel)}); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}
	return &rfcommListener{fd: fd}, nil
}

// rfcommListener wakes a blocked accept with shutdown(2). The descriptor is
// closed only once no accept is in flight, so its number cannot be reused
// under a running accept.
type rfcommListener struct {
	mu       sync.Mutex
	fd       int
	inflight int
	closed   bool
}

func (l *rfcommListener) Accept() (io.ReadWriteCloser, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, nil
	}
	l.inflight++
	fd := l.fd
	l.mu.Unlock()

	nfd, _, err := unix.Accept(fd)

	l.mu.Lock()
	l.inflight--
	closed := l.closed
	if closed && l.inflight == 0 {
		_ = unix.Close(l.fd)
	}
	l.mu.Unlock()

	if closed {
		if err == nil {
			_ = unix.Close(nfd)
		}
		return nil, nil
	}
	if err != nil {
		return nil, os.NewSyscallError("accept", err)
	}
	unix.CloseOnExec(nfd)
	return os.NewFile(uintptr(nfd), "rfcomm"), nil
}

func (l *rfcommListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_ = unix.Shutdown(l.fd, unix.SHUT_RDWR)
	if l.inflight == 0 {
		return unix.Close(l.fd)
	}
	return nil
}
