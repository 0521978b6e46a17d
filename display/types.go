package display

import "fmt"

// Format is a pixel-format tag. Values match SDL's pixel format enum.
type Format uint32

const (
	FormatUnknown  Format = 0
	FormatRGB565   Format = 0x15151002
	FormatARGB8888 Format = 0x16362004
)

func (f Format) String() string {
	switch f {
	case FormatRGB565:
		return "RGB565"
	case FormatARGB8888:
		return "ARGB8888"
	default:
		return fmt.Sprintf("format(%#x)", uint32(f))
	}
}

// BitsPerPixel returns the pixel size of the format, or 0 when unknown.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatRGB565:
		return 16
	case FormatARGB8888:
		return 32
	default:
		return 0
	}
}

// Descriptor describes a negotiated surface.
type Descriptor struct {
	Width        int
	Height       int
	BitsPerPixel int
	Pitch        int // bytes per row
	Format       Format
}

// FrameSize returns the number of bytes in one frame.
func (d Descriptor) FrameSize() int { return d.Pitch * d.Height }

// newDescriptor builds a tightly packed descriptor.
func newDescriptor(w, h int, f Format) Descriptor {
	bpp := f.BitsPerPixel()
	return Descriptor{
		Width:        w,
		Height:       h,
		BitsPerPixel: bpp,
		Pitch:        w * bpp / 8,
		Format:       f,
	}
}

// Options are the requested surface parameters. Zero sizes let the backend
// choose.
type Options struct {
	Width      int
	Height     int
	Fullscreen bool
}

// Backend is a host presentation layer.
type Backend interface {
	Name() string
	// Init creates the host surface.
	Init(title string, opts Options) (Descriptor, error)
	// Present pushes one frame of Descriptor.FrameSize bytes.
	Present(pixels []byte) error
	// Destroy releases every host resource.
	Destroy()
}
