package serial

import (
	stderrors "errors"
	"io"
	"io/fs"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wippyai/native-bridge/errors"
)

// Loopback is a TCP transport bound to 127.0.0.1. The "port=N" parameter
// selects the port; the default picks a free one.
type Loopback struct {
	addrs map[uuid.UUID]string
	mu    sync.Mutex
}

// NewLoopback creates a loopback TCP transport.
func NewLoopback() *Loopback {
	return &Loopback{addrs: make(map[uuid.UUID]string)}
}

func (t *Loopback) Name() string { return "loopback" }

func (t *Loopback) Listen(id uuid.UUID, params []string) (Listener, error) {
	port, err := intParam(params, "port", 0)
	if err != nil {
		return nil, err
	}
	if port < 0 || port > 65535 {
		return nil, errors.InvalidArgument(errors.PhaseService, "create", "port out of range: "+strconv.Itoa(port))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.addrs[id]; ok {
		return nil, &fs.PathError{Op: "listen", Path: id.String(), Err: fs.ErrExist}
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	t.addrs[id] = ln.Addr().String()
	return &tcpListener{transport: t, id: id, ln: ln}, nil
}

// Addr returns the address of the listener registered for id.
func (t *Loopback) Addr(id uuid.UUID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr, ok := t.addrs[id]
	return addr, ok
}

// Dial connects to the listener registered for id.
func (t *Loopback) Dial(id uuid.UUID) (net.Conn, error) {
	addr, ok := t.Addr(id)
	if !ok {
		return nil, errors.NotFound(errors.PhaseService, "dial", id.String())
	}
	return net.Dial("tcp", addr)
}

type tcpListener struct {
	transport *Loopback
	ln        net.Listener
	closed    atomic.Bool
	id        uuid.UUID
}

func (l *tcpListener) Accept() (io.ReadWriteCloser, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if l.closed.Load() || stderrors.Is(err, net.ErrClosed) {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

func (l *tcpListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.transport.mu.Lock()
	delete(l.transport.addrs, l.id)
	l.transport.mu.Unlock()
	return l.ln.Close()
}
