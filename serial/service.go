package serial

import (
	stderrors "errors"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
)

// Managed type names of the objects a service creates.
const (
	ServerType = "SerialPortServer"
	ClientType = "SerialPortClient"
)

// HandleField is the instance field holding an object's handle carrier.
const HandleField = "nativeHandle"

// State is the lifecycle state of a server.
type State int32

const (
	StateCreated State = iota
	StateListening
	StateAccepting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateListening:
		return "listening"
	case StateAccepting:
		return "accepting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Service creates servers on one transport.
type Service struct {
	transport Transport
	heap      *managed.Heap
	table     *resource.Table
}

// NewService creates a service on the given transport.
func NewService(t Transport, heap *managed.Heap, table *resource.Table) *Service {
	return &Service{transport: t, heap: heap, table: table}
}

// Transport returns the service's transport.
func (s *Service) Transport() Transport { return s.transport }

// Create starts listening on the endpoint named by identifier, a UUID.
func (s *Service) Create(identifier string, params []string) (*Server, error) {
	id, err := uuid.Parse(identifier)
	if err != nil {
		return nil, errors.New(errors.PhaseService, errors.KindInvalidArgument).
			Op("create").
			Path(identifier).
			Detail("invalid UUID").
			Cause(err).
			Build()
	}

	instance, err := s.heap.CreateInstance(ServerType)
	if err != nil {
		return nil, err
	}
	carrier, err := handle.NewCarrier(s.heap, s.table)
	if err != nil {
		return nil, err
	}
	srv := &Server{svc: s, id: id, instance: instance, carrier: carrier}
	srv.state.Store(int32(StateCreated))

	ln, err := s.transport.Listen(id, params)
	if err != nil {
		return nil, errors.FromHost(errors.PhaseService, "create", identifier, err)
	}
	if _, err := carrier.Bind(resource.KindListener, ln); err != nil {
		_ = ln.Close()
		return nil, err
	}
	instance.SetField(HandleField, carrier.Object())
	srv.state.Store(int32(StateListening))

	Logger().Info("serial server listening",
		zap.Stringer("id", id),
		zap.String("transport", s.transport.Name()),
		zap.Strings("params", params))
	return srv, nil
}

// Server is a listening endpoint.
type Server struct {
	svc       *Service
	instance  *managed.Object
	carrier   *handle.Carrier
	state     atomic.Int32
	accepting atomic.Int32
	id        uuid.UUID
}

// ID returns the service identifier.
func (s *Server) ID() uuid.UUID { return s.id }

// Instance returns the managed server object.
func (s *Server) Instance() *managed.Object { return s.instance }

// Carrier returns the carrier of the listening handle.
func (s *Server) Carrier() *handle.Carrier { return s.carrier }

// State returns the current lifecycle state.
func (s *Server) State() State {
	st := State(s.state.Load())
	if st == StateListening && s.accepting.Load() > 0 {
		return StateAccepting
	}
	return st
}

// Accept blocks until a client connects or Close interrupts it.
func (s *Server) Accept() (*Client, error) {
	r, err := s.carrier.Resource("accept")
	if err != nil {
		return nil, err
	}
	ln, err := handle.As[Listener]("accept", r)
	if err != nil {
		return nil, err
	}

	heap := s.svc.heap
	instance, err := heap.CreateInstance(ClientType)
	if err != nil {
		return nil, err
	}
	carrier, err := handle.NewCarrier(heap, s.svc.table)
	if err != nil {
		return nil, err
	}

	var conn io.ReadWriteCloser
	err = handle.WithLocked(heap, func() error {
		s.accepting.Add(1)
		defer s.accepting.Add(-1)

		var err error
		conn, err = ln.Accept()
		return err
	}, s.carrier.Object(), carrier.Object(), instance)

	switch {
	case err != nil:
		Logger().Debug("accept failed", zap.Stringer("id", s.id), zap.Error(err))
		return nil, errors.New(errors.PhaseService, errors.KindIOFailure).
			Op("accept").
			Path(s.id.String()).
			Cause(err).
			Build()
	case conn == nil:
		Logger().Debug("accept aborted by close", zap.Stringer("id", s.id))
		return nil, errors.Aborted(errors.PhaseService, "accept")
	case !s.carrier.Bound():
		_ = conn.Close()
		Logger().Debug("accept completed after close", zap.Stringer("id", s.id))
		return nil, errors.Aborted(errors.PhaseService, "accept")
	}

	if _, err := carrier.Bind(resource.KindConnection, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	instance.SetField(HandleField, carrier.Object())

	Logger().Debug("client accepted", zap.Stringer("id", s.id), zap.Uint32("handle", uint32(carrier.Handle())))
	return &Client{heap: heap, instance: instance, carrier: carrier}, nil
}

// Close stops listening. A blocked Accept returns KindOperationAborted.
// Closing a closed server is a no-op.
func (s *Server) Close() error {
	r, ok := s.carrier.Unbind()
	if !ok {
		return nil
	}
	s.state.Store(int32(StateClosed))
	s.instance.SetField(HandleField, nil)

	Logger().Info("serial server closed", zap.Stringer("id", s.id))
	if err := r.Close(); err != nil {
		return errors.FromHost(errors.PhaseService, "close", s.id.String(), err)
	}
	return nil
}

// Client is an accepted connection.
type Client struct {
	heap     *managed.Heap
	instance *managed.Object
	carrier  *handle.Carrier
}

// Instance returns the managed client object.
func (c *Client) Instance() *managed.Object { return c.instance }

// Carrier returns the carrier of the connection handle.
func (c *Client) Carrier() *handle.Carrier { return c.carrier }

func checkRange(op string, buf *managed.Object, off, n int) error {
	if buf == nil || !buf.InRange(off, n) {
		return errors.InvalidArgument(errors.PhaseService, op, "range outside buffer")
	}
	return nil
}

// Read reads up to n bytes into buf[off:]. It blocks until data arrives.
// A connection closed by the peer reads 0 bytes and no error.
func (c *Client) Read(buf *managed.Object, off, n int) (int, error) {
	if err := checkRange("readBytes", buf, off, n); err != nil {
		return 0, err
	}
	var read int
	err := c.carrier.Use("readBytes", func(r io.Closer) error {
		rd, err := handle.As[io.Reader]("readBytes", r)
		if err != nil {
			return err
		}
		read, err = rd.Read(buf.Bytes()[off : off+n])
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return ioErr("readBytes", err)
	}, buf)
	return read, err
}

// Write writes n bytes from buf[off:].
func (c *Client) Write(buf *managed.Object, off, n int) (int, error) {
	if err := checkRange("writeBytes", buf, off, n); err != nil {
		return 0, err
	}
	var written int
	err := c.carrier.Use("writeBytes", func(r io.Closer) error {
		wr, err := handle.As[io.Writer]("writeBytes", r)
		if err != nil {
			return err
		}
		written, err = wr.Write(buf.Bytes()[off : off+n])
		return ioErr("writeBytes", err)
	}, buf)
	return written, err
}

// Close releases the connection. Closing twice is a no-op.
func (c *Client) Close() error {
	err := c.carrier.Release()
	c.instance.SetField(HandleField, nil)
	return ioErr("close", err)
}

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.FromHost(errors.PhaseService, op, "", err)
}
