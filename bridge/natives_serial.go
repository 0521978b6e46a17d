package bridge

import (
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/serial"
)

const (
	serverField = "server"
	clientField = "client"
)

func serverArg(op string, args []any, n int) (*serial.Server, error) {
	if err := arity(op, args, n); err != nil {
		return nil, err
	}
	obj, err := objectArg(op, args, 0, serial.ServerType)
	if err != nil {
		return nil, err
	}
	return peer[*serial.Server](op, obj, serverField)
}

func clientArg(op string, args []any, n int) (*serial.Client, error) {
	if err := arity(op, args, n); err != nil {
		return nil, err
	}
	obj, err := objectArg(op, args, 0, serial.ClientType)
	if err != nil {
		return nil, err
	}
	return peer[*serial.Client](op, obj, clientField)
}

// clientTransfer adapts SerialPortClient.read and write:
// (client, buf, off, n) -> int.
func clientTransfer(name string, do func(c *serial.Client, buf *managed.Object, off, n int) (int, error)) Native {
	return func(_ *managed.Context, args []any) (any, error) {
		c, err := clientArg(name, args, 4)
		if err != nil {
			return nil, err
		}
		buf, err := bufferArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		off, err := intArg(name, args, 2)
		if err != nil {
			return nil, err
		}
		n, err := intArg(name, args, 3)
		if err != nil {
			return nil, err
		}
		return do(c, buf, int(off), int(n))
	}
}

func (r *Runtime) registerSerial(reg *Registry) error {
	natives := map[string]Native{
		"SerialPortServer.create": func(_ *managed.Context, args []any) (any, error) {
			const op = "SerialPortServer.create"
			if len(args) < 1 || len(args) > 2 {
				return nil, arity(op, args, 2)
			}
			id, err := arg[string](op, args, 0)
			if err != nil {
				return nil, err
			}
			var params []string
			if len(args) > 1 {
				if params, err = arg[[]string](op, args, 1); err != nil {
					return nil, err
				}
			}
			if params == nil {
				params = r.cfg.Serial.Params
			}
			srv, err := r.serial.Create(id, params)
			if err != nil {
				return nil, err
			}
			srv.Instance().SetField(serverField, srv)
			return srv.Instance(), nil
		},
		"SerialPortServer.accept": func(_ *managed.Context, args []any) (any, error) {
			srv, err := serverArg("SerialPortServer.accept", args, 1)
			if err != nil {
				return nil, err
			}
			c, err := srv.Accept()
			if err != nil {
				return nil, err
			}
			c.Instance().SetField(clientField, c)
			return c.Instance(), nil
		},
		"SerialPortServer.close": func(_ *managed.Context, args []any) (any, error) {
			srv, err := serverArg("SerialPortServer.close", args, 1)
			if err != nil {
				return nil, err
			}
			return nil, srv.Close()
		},
		"SerialPortClient.read":  clientTransfer("SerialPortClient.read", (*serial.Client).Read),
		"SerialPortClient.write": clientTransfer("SerialPortClient.write", (*serial.Client).Write),
		"SerialPortClient.close": func(_ *managed.Context, args []any) (any, error) {
			c, err := clientArg("SerialPortClient.close", args, 1)
			if err != nil {
				return nil, err
			}
			return nil, c.Close()
		},
	}
	for name, fn := range natives {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
