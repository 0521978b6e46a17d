package bridge

import (
	"github.com/wippyai/native-bridge/display"
	"github.com/wippyai/native-bridge/managed"
)

// DisplayType is the managed type returned by Display.init.
const DisplayType = "Display"

const surfaceField = "surface"

func surfaceArg(op string, args []any, n int) (*display.Surface, error) {
	if err := arity(op, args, n); err != nil {
		return nil, err
	}
	obj, err := objectArg(op, args, 0, DisplayType)
	if err != nil {
		return nil, err
	}
	return peer[*display.Surface](op, obj, surfaceField)
}

func (r *Runtime) registerDisplay(reg *Registry) error {
	natives := map[string]Native{
		// Display.init(title, fullscreen) returns an instance whose fields
		// describe the negotiated surface.
		"Display.init": func(_ *managed.Context, args []any) (any, error) {
			const op = "Display.init"
			if err := arity(op, args, 2); err != nil {
				return nil, err
			}
			title, err := arg[string](op, args, 0)
			if err != nil {
				return nil, err
			}
			fullscreen, err := arg[bool](op, args, 1)
			if err != nil {
				return nil, err
			}
			s, err := r.NewSurface()
			if err != nil {
				return nil, err
			}
			desc, err := s.Init(title, fullscreen)
			if err != nil {
				r.dropSurface(s)
				return nil, err
			}
			obj, err := r.heap.CreateInstance(DisplayType)
			if err != nil {
				r.dropSurface(s)
				return nil, err
			}
			obj.SetField(surfaceField, s)
			obj.SetField("width", desc.Width)
			obj.SetField("height", desc.Height)
			obj.SetField("bitsPerPixel", desc.BitsPerPixel)
			obj.SetField("pitch", desc.Pitch)
			obj.SetField("format", uint32(desc.Format))
			return obj, nil
		},
		"Display.newFrame": func(_ *managed.Context, args []any) (any, error) {
			s, err := surfaceArg("Display.newFrame", args, 1)
			if err != nil {
				return nil, err
			}
			return s.NewFrame()
		},
		"Display.present": func(_ *managed.Context, args []any) (any, error) {
			s, err := surfaceArg("Display.present", args, 2)
			if err != nil {
				return nil, err
			}
			frame, err := bufferArg("Display.present", args, 1)
			if err != nil {
				return nil, err
			}
			return nil, s.Present(frame)
		},
		"Display.destroy": func(_ *managed.Context, args []any) (any, error) {
			s, err := surfaceArg("Display.destroy", args, 1)
			if err != nil {
				return nil, err
			}
			r.dropSurface(s)
			return nil, nil
		},
	}
	for name, fn := range natives {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
