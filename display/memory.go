package display

import "sync"

// Memory is an in-process backend that keeps the last presented frame.
type Memory struct {
	// InitErr, when set, makes Init fail.
	InitErr error

	last      []byte
	opts      Options
	frames    int
	width     int
	height    int
	mu        sync.Mutex
	destroyed bool
}

// NewMemory creates a backend whose native size is width x height.
func NewMemory(width, height int) *Memory {
	return &Memory{width: width, height: height}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Init(_ string, opts Options) (Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InitErr != nil {
		return Descriptor{}, m.InitErr
	}
	m.opts = opts
	w, h := m.width, m.height
	if opts.Width > 0 {
		w = opts.Width
	}
	if opts.Height > 0 {
		h = opts.Height
	}
	return newDescriptor(w, h, FormatARGB8888), nil
}

func (m *Memory) Present(pixels []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last[:0], pixels...)
	m.frames++
	return nil
}

func (m *Memory) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.mu.Unlock()
}

// Last returns a copy of the most recent frame.
func (m *Memory) Last() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.last...)
}

// Frames returns the number of frames presented.
func (m *Memory) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Options returns the options the last Init received.
func (m *Memory) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// Destroyed reports whether Destroy ran.
func (m *Memory) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
