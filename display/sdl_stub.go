//go:build !((linux || darwin) && !ios && !android && (amd64 || arm64))

package display

import "errors"

var errNoSDL = errors.New("SDL2 backend is not available on this platform")

func loadSDL() error { return errNoSDL }

// SDL is unavailable on this platform; Init always fails.
type SDL struct{}

// NewSDL creates an SDL2 backend.
func NewSDL() *SDL { return &SDL{} }

func (*SDL) Name() string { return "sdl" }

func (*SDL) Init(string, Options) (Descriptor, error) { return Descriptor{}, errNoSDL }

func (*SDL) Present([]byte) error { return errNoSDL }

func (*SDL) Destroy() {}
