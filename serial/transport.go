package serial

import (
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wippyai/native-bridge/errors"
)

// Listener is a listening endpoint.
type Listener interface {
	// Accept blocks until a client connects. It returns a nil connection
	// and a nil error when Close ran while it was blocked.
	Accept() (io.ReadWriteCloser, error)
	Close() error
}

// Transport creates listening endpoints addressed by a service UUID.
type Transport interface {
	Name() string
	Listen(id uuid.UUID, params []string) (Listener, error)
}

// NewTransport returns the transport registered under name: "pipe",
// "loopback" or "rfcomm".
func NewTransport(name string) (Transport, error) {
	switch name {
	case "pipe":
		return NewPipe(), nil
	case "loopback":
		return NewLoopback(), nil
	case "rfcomm":
		return NewRFCOMM(), nil
	default:
		return nil, errors.Unsupported(errors.PhaseService, "transport", "unknown transport "+strconv.Quote(name))
	}
}

// intParam returns the integer value of key=value in params, or def.
func intParam(params []string, key string, def int) (int, error) {
	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) != key {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.New(errors.PhaseService, errors.KindInvalidArgument).
				Op("create").
				Detail("malformed parameter %q", p).
				Cause(err).
				Build()
		}
		return n, nil
	}
	return def, nil
}
