package display

import (
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/managed"
)

// Environment variables read by Surface.Init.
const (
	EnvWidth      = "BRIDGE_WIDTH"
	EnvHeight     = "BRIDGE_HEIGHT"
	EnvFullscreen = "BRIDGE_FULLSCREEN"
)

type surfaceState int

const (
	stateNew surfaceState = iota
	stateReady
	stateDestroyed
)

// Surface is an owned display context.
type Surface struct {
	backend  Backend
	heap     *managed.Heap
	lookup   func(string) (string, bool)
	defaults Options
	desc     Descriptor
	state    surfaceState
	mu       sync.Mutex
}

// NewSurface creates a surface over backend. defaults supplies the size
// used when the environment does not override it.
func NewSurface(backend Backend, heap *managed.Heap, defaults Options) *Surface {
	return &Surface{
		backend:  backend,
		heap:     heap,
		lookup:   os.LookupEnv,
		defaults: defaults,
	}
}

// Backend returns the presentation backend.
func (s *Surface) Backend() Backend { return s.backend }

// options applies environment overrides to the defaults.
func (s *Surface) options(fullscreen bool) (Options, error) {
	opts := s.defaults
	opts.Fullscreen = fullscreen

	for _, o := range []struct {
		name string
		dst  *int
	}{{EnvWidth, &opts.Width}, {EnvHeight, &opts.Height}} {
		v, ok := s.lookup(o.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Options{}, errors.New(errors.PhaseDisplay, errors.KindInvalidArgument).
				Op("init").
				Detail("%s must be a positive integer, got %q", o.name, v).
				Build()
		}
		*o.dst = n
	}

	if v, ok := s.lookup(EnvFullscreen); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Options{}, errors.New(errors.PhaseDisplay, errors.KindInvalidArgument).
				Op("init").
				Detail("%s must be a boolean, got %q", EnvFullscreen, v).
				Build()
		}
		opts.Fullscreen = b
	}
	return opts, nil
}

// Init negotiates the host surface. Host failures are reported as
// KindIOFailure.
func (s *Surface) Init(title string, fullscreen bool) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateReady:
		return Descriptor{}, errors.InvalidArgument(errors.PhaseDisplay, "init", "surface already initialized")
	case stateDestroyed:
		return Descriptor{}, errors.InvalidHandle(errors.PhaseDisplay, "init")
	}

	opts, err := s.options(fullscreen)
	if err != nil {
		return Descriptor{}, err
	}

	desc, err := s.backend.Init(title, opts)
	if err != nil {
		return Descriptor{}, errors.New(errors.PhaseDisplay, errors.KindIOFailure).
			Op("init").
			Detail("%s backend", s.backend.Name()).
			Cause(err).
			Build()
	}
	if desc.FrameSize() <= 0 {
		s.backend.Destroy()
		return Descriptor{}, errors.New(errors.PhaseDisplay, errors.KindIOFailure).
			Op("init").
			Detail("%s backend returned an empty surface", s.backend.Name()).
			Build()
	}

	s.desc = desc
	s.state = stateReady
	Logger().Info("display initialized",
		zap.String("backend", s.backend.Name()),
		zap.Int("width", desc.Width),
		zap.Int("height", desc.Height),
		zap.Int("bpp", desc.BitsPerPixel),
		zap.Stringer("format", desc.Format),
		zap.Bool("fullscreen", opts.Fullscreen))
	return desc, nil
}

// Descriptor returns the negotiated surface, if any.
func (s *Surface) Descriptor() (Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc, s.state == stateReady
}

// NewFrame allocates a managed pixel buffer sized for one frame.
func (s *Surface) NewFrame() (*managed.Object, error) {
	desc, ok := s.Descriptor()
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseDisplay, "newFrame")
	}
	return s.heap.Allocate(desc.FrameSize())
}

// Present pushes one frame. The buffer stays LOCKED while the backend
// reads it.
func (s *Surface) Present(frame *managed.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateReady {
		return errors.InvalidHandle(errors.PhaseDisplay, "present")
	}
	size := s.desc.FrameSize()
	if frame == nil || frame.Len() < size {
		return errors.InvalidArgument(errors.PhaseDisplay, "present", "frame smaller than surface")
	}

	return handle.WithLocked(s.heap, func() error {
		if err := s.backend.Present(frame.Bytes()[:size]); err != nil {
			return errors.IOFailure(errors.PhaseDisplay, "present", err)
		}
		return nil
	}, frame)
}

// Destroy releases the host surface. Later calls are no-ops.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateReady {
		s.backend.Destroy()
		Logger().Info("display destroyed", zap.String("backend", s.backend.Name()))
	}
	s.state = stateDestroyed
}

// Close destroys the surface.
func (s *Surface) Close() error {
	s.Destroy()
	return nil
}
