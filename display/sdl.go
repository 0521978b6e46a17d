//go:build (linux || darwin) && !ios && !android && (amd64 || arm64)

package display

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

const (
	sdlInitVideo              = 0x00000020
	sdlWindowPosUndefined     = 0x1FFF0000
	sdlWindowFullscreen       = 0x00000001
	sdlWindowShown            = 0x00000004
	sdlRendererAccelerated    = 0x00000002
	sdlTextureAccessStreaming = 1
)

type sdlDisplayMode struct {
	format      uint32
	w           int32
	h           int32
	refreshRate int32
	driverData  uintptr
}

var (
	sdlLib     uintptr
	sdlLoadErr error
	sdlOnce    sync.Once

	sdlInit                  func(flags uint32) int32
	sdlQuit                  func()
	sdlGetError              func() string
	sdlGetCurrentDisplayMode func(index int32, mode *sdlDisplayMode) int32
	sdlCreateWindow          func(title string, x, y, w, h int32, flags uint32) uintptr
	sdlDestroyWindow         func(window uintptr)
	sdlCreateRenderer        func(window uintptr, index int32, flags uint32) uintptr
	sdlDestroyRenderer       func(renderer uintptr)
	sdlCreateTexture         func(renderer uintptr, format uint32, access int32, w, h int32) uintptr
	sdlDestroyTexture        func(texture uintptr)
	sdlUpdateTexture         func(texture uintptr, rect uintptr, pixels unsafe.Pointer, pitch int32) int32
	sdlRenderCopy            func(renderer, texture uintptr, src, dst uintptr) int32
	sdlRenderPresent         func(renderer uintptr)
	sdlRenderClear           func(renderer uintptr) int32
)

func sdlLibraryNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{"libSDL2-2.0.0.dylib", "libSDL2.dylib", "/opt/homebrew/lib/libSDL2.dylib", "/usr/local/lib/libSDL2.dylib"}
	}
	return []string{"libSDL2-2.0.so.0", "libSDL2.so"}
}

func loadSDL() error {
	sdlOnce.Do(func() {
		for _, name := range sdlLibraryNames() {
			lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err == nil {
				sdlLib = lib
				break
			}
			sdlLoadErr = err
		}
		if sdlLib == 0 {
			sdlLoadErr = fmt.Errorf("SDL2 library not found: %w", sdlLoadErr)
			return
		}
		sdlLoadErr = nil

		purego.RegisterLibFunc(&sdlInit, sdlLib, "SDL_Init")
		purego.RegisterLibFunc(&sdlQuit, sdlLib, "SDL_Quit")
		purego.RegisterLibFunc(&sdlGetError, sdlLib, "SDL_GetError")
		purego.RegisterLibFunc(&sdlGetCurrentDisplayMode, sdlLib, "SDL_GetCurrentDisplayMode")
		purego.RegisterLibFunc(&sdlCreateWindow, sdlLib, "SDL_CreateWindow")
		purego.RegisterLibFunc(&sdlDestroyWindow, sdlLib, "SDL_DestroyWindow")
		purego.RegisterLibFunc(&sdlCreateRenderer, sdlLib, "SDL_CreateRenderer")
		purego.RegisterLibFunc(&sdlDestroyRenderer, sdlLib, "SDL_DestroyRenderer")
		purego.RegisterLibFunc(&sdlCreateTexture, sdlLib, "SDL_CreateTexture")
		purego.RegisterLibFunc(&sdlDestroyTexture, sdlLib, "SDL_DestroyTexture")
		purego.RegisterLibFunc(&sdlUpdateTexture, sdlLib, "SDL_UpdateTexture")
		purego.RegisterLibFunc(&sdlRenderCopy, sdlLib, "SDL_RenderCopy")
		purego.RegisterLibFunc(&sdlRenderPresent, sdlLib, "SDL_RenderPresent")
		purego.RegisterLibFunc(&sdlRenderClear, sdlLib, "SDL_RenderClear")
	})
	return sdlLoadErr
}

// SDL presents frames in an SDL2 window. The library is loaded on the first
// Init; no cgo is involved.
type SDL struct {
	window   uintptr
	renderer uintptr
	texture  uintptr
	desc     Descriptor
}

// NewSDL creates an SDL2 backend.
func NewSDL() *SDL { return &SDL{} }

func (s *SDL) Name() string { return "sdl" }

func (s *SDL) fail(call string) error {
	return fmt.Errorf("%s: %s", call, sdlGetError())
}

func (s *SDL) Init(title string, opts Options) (Descriptor, error) {
	if err := loadSDL(); err != nil {
		return Descriptor{}, err
	}
	if sdlInit(sdlInitVideo) != 0 {
		return Descriptor{}, s.fail("SDL_Init")
	}

	w, h := int32(opts.Width), int32(opts.Height)
	if w <= 0 || h <= 0 {
		var mode sdlDisplayMode
		if sdlGetCurrentDisplayMode(0, &mode) != 0 {
			err := s.fail("SDL_GetCurrentDisplayMode")
			sdlQuit()
			return Descriptor{}, err
		}
		if w <= 0 {
			w = mode.w
		}
		if h <= 0 {
			h = mode.h
		}
	}

	flags := uint32(sdlWindowShown)
	if opts.Fullscreen {
		flags |= sdlWindowFullscreen
	}
	if s.window = sdlCreateWindow(title, sdlWindowPosUndefined, sdlWindowPosUndefined, w, h, flags); s.window == 0 {
		err := s.fail("SDL_CreateWindow")
		s.Destroy()
		return Descriptor{}, err
	}
	if s.renderer = sdlCreateRenderer(s.window, -1, sdlRendererAccelerated); s.renderer == 0 {
		err := s.fail("SDL_CreateRenderer")
		s.Destroy()
		return Descriptor{}, err
	}
	if s.texture = sdlCreateTexture(s.renderer, uint32(FormatARGB8888), sdlTextureAccessStreaming, w, h); s.texture == 0 {
		err := s.fail("SDL_CreateTexture")
		s.Destroy()
		return Descriptor{}, err
	}

	s.desc = newDescriptor(int(w), int(h), FormatARGB8888)
	return s.desc, nil
}

func (s *SDL) Present(pixels []byte) error {
	if len(pixels) == 0 {
		return nil
	}
	if sdlUpdateTexture(s.texture, 0, unsafe.Pointer(&pixels[0]), int32(s.desc.Pitch)) != 0 {
		return s.fail("SDL_UpdateTexture")
	}
	if sdlRenderCopy(s.renderer, s.texture, 0, 0) != 0 {
		return s.fail("SDL_RenderCopy")
	}
	sdlRenderPresent(s.renderer)
	sdlRenderClear(s.renderer)
	return nil
}

func (s *SDL) Destroy() {
	if s.texture != 0 {
		sdlDestroyTexture(s.texture)
		s.texture = 0
	}
	if s.renderer != 0 {
		sdlDestroyRenderer(s.renderer)
		s.renderer = 0
	}
	if s.window != 0 {
		sdlDestroyWindow(s.window)
		s.window = 0
	}
	if sdlLib != 0 {
		sdlQuit()
	}
}
