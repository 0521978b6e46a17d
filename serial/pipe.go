package serial

import (
	"io"
	"io/fs"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/wippyai/native-bridge/errors"
)

// Pipe is an in-memory transport. Clients connect with Dial.
type Pipe struct {
	listeners map[uuid.UUID]*pipeListener
	mu        sync.Mutex
}

// NewPipe creates an empty in-memory transport.
func NewPipe() *Pipe {
	return &Pipe{listeners: make(map[uuid.UUID]*pipeListener)}
}

func (p *Pipe) Name() string { return "pipe" }

func (p *Pipe) Listen(id uuid.UUID, _ []string) (Listener, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.listeners[id]; ok {
		return nil, &fs.PathError{Op: "listen", Path: id.String(), Err: fs.ErrExist}
	}
	l := &pipeListener{
		pipe:  p,
		id:    id,
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
	p.listeners[id] = l
	return l, nil
}

// Dial connects to the listener registered for id. It blocks until the
// listener accepts or closes.
func (p *Pipe) Dial(id uuid.UUID) (net.Conn, error) {
	p.mu.Lock()
	l, ok := p.listeners[id]
	p.mu.Unlock()
	if !ok {
		return nil, errors.NotFound(errors.PhaseService, "dial", id.String())
	}

	server, client := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.done:
		_ = server.Close()
		_ = client.Close()
		return nil, errors.NotFound(errors.PhaseService, "dial", id.String())
	}
}

type pipeListener struct {
	pipe  *Pipe
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
	id    uuid.UUID
}

func (l *pipeListener) Accept() (io.ReadWriteCloser, error) {
	select {
	case <-l.done:
		return nil, nil
	default:
	}
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, nil
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.pipe.mu.Lock()
		delete(l.pipe.listeners, l.id)
		l.pipe.mu.Unlock()
	})
	return nil
}
