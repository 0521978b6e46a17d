package display

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Terminal renders frames into a terminal using the upper half block, so
// each character cell shows two vertically stacked pixels.
type Terminal struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	desc     Descriptor
	fd       int
}

// NewTerminal creates a backend writing to out. fd is queried for the
// terminal size when no size is requested.
func NewTerminal(out io.Writer, fd int) *Terminal {
	return &Terminal{out: out, fd: fd, renderer: lipgloss.NewRenderer(out)}
}

func (t *Terminal) Name() string { return "terminal" }

func (t *Terminal) Init(_ string, opts Options) (Descriptor, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		cols, rows, err := term.GetSize(t.fd)
		if err != nil {
			return Descriptor{}, fmt.Errorf("terminal size: %w", err)
		}
		if w <= 0 {
			w = cols
		}
		if h <= 0 {
			h = (rows - 1) * 2
		}
	}
	if w <= 0 || h <= 0 {
		return Descriptor{}, fmt.Errorf("terminal too small: %dx%d", w, h)
	}
	t.desc = newDescriptor(w, h, FormatARGB8888)
	if opts.Fullscreen {
		_, _ = io.WriteString(t.out, "\x1b[2J")
	}
	return t.desc, nil
}

func (t *Terminal) pixel(pixels []byte, x, y int) lipgloss.Color {
	if y >= t.desc.Height {
		return lipgloss.Color("#000000")
	}
	off := y*t.desc.Pitch + x*4
	argb := binary.LittleEndian.Uint32(pixels[off : off+4])
	return lipgloss.Color(fmt.Sprintf("#%06x", argb&0xFFFFFF))
}

func (t *Terminal) Present(pixels []byte) error {
	var b strings.Builder
	b.WriteString("\x1b[H")
	for y := 0; y < t.desc.Height; y += 2 {
		for x := 0; x < t.desc.Width; x++ {
			style := t.renderer.NewStyle().
				Foreground(t.pixel(pixels, x, y)).
				Background(t.pixel(pixels, x, y+1))
			b.WriteString(style.Render("▀"))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(t.out, b.String())
	return err
}

func (t *Terminal) Destroy() {
	_, _ = io.WriteString(t.out, "\x1b[0m")
}
