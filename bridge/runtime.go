package bridge

import (
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/config"
	"github.com/wippyai/native-bridge/display"
	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/file"
	"github.com/wippyai/native-bridge/host"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
	"github.com/wippyai/native-bridge/serial"
)

// Runtime owns every native service of one bridge instance.
type Runtime struct {
	cfg         config.Config
	log         *zap.Logger
	host        host.Host
	heap        *managed.Heap
	table       *resource.Table
	files       *file.System
	serial      *serial.Service
	natives     *Registry
	unsubscribe func()
	surfaces    []*display.Surface
	newBackend  func(config.Display) display.Backend
	mu          sync.Mutex
	closed      bool
}

// New validates cfg and builds a runtime. A nil log builds one from
// cfg.Log and installs it into every package.
func New(cfg config.Config, log *zap.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		log = l
		InstallLogger(log)
	}

	h, err := newHost(cfg.Files)
	if err != nil {
		return nil, err
	}
	transport, err := serial.NewTransport(cfg.Serial.Transport)
	if err != nil {
		return nil, err
	}

	heap := managed.NewHeap(cfg.Heap.Limit)
	table := resource.NewTable()
	rt := &Runtime{
		cfg:        cfg,
		log:        log,
		host:       h,
		heap:       heap,
		table:      table,
		files:      file.NewSystem(h, heap, table),
		serial:     serial.NewService(transport, heap, table),
		natives:    NewRegistry(),
		newBackend: displayBackend,
	}
	rt.unsubscribe = table.Subscribe(resource.ObserverFunc(rt.onResourceEvent))

	for _, register := range []func(*Registry) error{rt.registerFile, rt.registerSerial, rt.registerDisplay} {
		if err := register(rt.natives); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	log.Info("bridge runtime ready",
		zap.String("host", h.Name()),
		zap.String("transport", transport.Name()),
		zap.String("display", cfg.Display.Backend),
		zap.Int("natives", len(rt.natives.Names())))
	return rt, nil
}

func newHost(c config.Files) (host.Host, error) {
	switch c.Host {
	case "sandbox":
		return host.NewSandbox(c.Root)
	case "os", "":
		return host.NewOS(), nil
	default:
		return nil, errors.InvalidArgument(errors.PhaseConfig, "host", "unknown host "+c.Host)
	}
}

func (r *Runtime) onResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventLeaked:
		r.log.Warn("handle leaked",
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Stringer("kind", e.Kind))
	case resource.EventCreated, resource.EventDropped:
		if ce := r.log.Check(zap.DebugLevel, "handle event"); ce != nil {
			ce.Write(zap.Uint32("handle", uint32(e.Handle)),
				zap.Stringer("kind", e.Kind),
				zap.Uint8("type", uint8(e.Type)))
		}
	}
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() config.Config { return r.cfg }

// Heap returns the managed heap.
func (r *Runtime) Heap() *managed.Heap { return r.heap }

// Table returns the handle table.
func (r *Runtime) Table() *resource.Table { return r.table }

// Files returns the file system.
func (r *Runtime) Files() *file.System { return r.files }

// Serial returns the serial service.
func (r *Runtime) Serial() *serial.Service { return r.serial }

// Natives returns the native registry.
func (r *Runtime) Natives() *Registry { return r.natives }

// Register adds a native method.
func (r *Runtime) Register(name string, fn Native) error {
	return r.natives.Register(name, fn)
}

// Invoke runs a native method. On failure an exception is pending on ctx
// and ok is false.
func (r *Runtime) Invoke(ctx *managed.Context, name string, args ...any) (any, bool) {
	return r.natives.Invoke(ctx, name, args...)
}

// NewSurface creates a display surface with the configured backend. The
// runtime destroys it on Close.
func (r *Runtime) NewSurface() (*display.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.InvalidHandle(errors.PhaseDisplay, "newSurface")
	}

	d := r.cfg.Display
	s := display.NewSurface(r.newBackend(d), r.heap, display.Options{Width: d.Width, Height: d.Height})
	r.surfaces = append(r.surfaces, s)
	return s, nil
}

// dropSurface destroys s and forgets it.
func (r *Runtime) dropSurface(s *display.Surface) {
	r.mu.Lock()
	for i, v := range r.surfaces {
		if v == s {
			r.surfaces = append(r.surfaces[:i], r.surfaces[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	s.Destroy()
}

func displayBackend(d config.Display) display.Backend {
	switch d.Backend {
	case "terminal":
		return display.NewTerminal(os.Stdout, int(os.Stdout.Fd()))
	case "sdl":
		return display.NewSDL()
	default:
		return display.NewMemory(d.Width, d.Height)
	}
}

// Close destroys surfaces, then releases every handle still bound. Leaked
// handles are logged.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	surfaces := r.surfaces
	r.surfaces = nil
	r.mu.Unlock()

	for _, s := range surfaces {
		s.Destroy()
	}
	err := r.table.Close()
	r.unsubscribe()
	if err != nil {
		r.log.Warn("closing leaked handles", zap.Error(err))
	}
	r.log.Info("bridge runtime closed", zap.Int("live_objects", r.heap.Live()))
	return err
}
