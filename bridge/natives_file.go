package bridge

import (
	"github.com/wippyai/native-bridge/file"
	"github.com/wippyai/native-bridge/managed"
)

// Managed type and field names used by the file natives.
const (
	FileType    = "File"
	fileField   = "file"
	handleField = "nativeHandle"
)

// fileNative adapts a method that acts on an open File instance. The
// instance is always the first argument.
func fileNative(name string, n int, fn func(f *file.File, args []any) (any, error)) Native {
	return func(_ *managed.Context, args []any) (any, error) {
		if err := arity(name, args, n+1); err != nil {
			return nil, err
		}
		obj, err := objectArg(name, args, 0, FileType)
		if err != nil {
			return nil, err
		}
		f, err := peer[*file.File](name, obj, fileField)
		if err != nil {
			return nil, err
		}
		return fn(f, args[1:])
	}
}

// pathNative adapts a method that takes a path as its first argument.
func pathNative(name string, n int, fn func(p string, args []any) (any, error)) Native {
	return func(_ *managed.Context, args []any) (any, error) {
		if err := arity(name, args, n+1); err != nil {
			return nil, err
		}
		p, err := arg[string](name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(p, args[1:])
	}
}

// transfer adapts readBytes and writeBytes: (file, buf, off, n) -> int.
func transfer(name string, do func(f *file.File, buf *managed.Object, off, n int) (int, error)) func(*file.File, []any) (any, error) {
	return func(f *file.File, args []any) (any, error) {
		buf, err := bufferArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		off, err := intArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		n, err := intArg(name, args, 2)
		if err != nil {
			return nil, err
		}
		return do(f, buf, int(off), int(n))
	}
}

func slotArg(op string, args []any) (int, error) {
	if err := arity(op, args, 1); err != nil {
		return 0, err
	}
	slot, err := intArg(op, args, 0)
	return int(slot), err
}

// fileInstance wraps f in a managed File instance. f is closed if the
// instance cannot be allocated.
func (r *Runtime) fileInstance(f *file.File) (*managed.Object, error) {
	obj, err := r.heap.CreateInstance(FileType)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	obj.SetField(fileField, f)
	obj.SetField(handleField, f.Carrier().Object())
	return obj, nil
}

func (r *Runtime) registerFile(reg *Registry) error {
	fs := r.files
	natives := map[string]Native{
		"File.create": pathNative("File.create", 1, func(p string, args []any) (any, error) {
			mode, err := intArg("File.create", args, 0)
			if err != nil {
				return nil, err
			}
			f, err := fs.Create(p, file.Mode(mode))
			if err != nil {
				return nil, err
			}
			return r.fileInstance(f)
		}),
		// File.stream(fd, type) wraps an inherited descriptor; type 0 is
		// input and 1 is output.
		"File.stream": func(_ *managed.Context, args []any) (any, error) {
			const op = "File.stream"
			if err := arity(op, args, 2); err != nil {
				return nil, err
			}
			fd, err := intArg(op, args, 0)
			if err != nil {
				return nil, err
			}
			typ, err := intArg(op, args, 1)
			if err != nil {
				return nil, err
			}
			f, err := fs.Stream(int(fd), file.StreamType(typ))
			if err != nil {
				return nil, err
			}
			return r.fileInstance(f)
		},
		"File.isCardInserted": func(_ *managed.Context, args []any) (any, error) {
			slot, err := slotArg("File.isCardInserted", args)
			if err != nil {
				return nil, err
			}
			return fs.CardInserted(slot), nil
		},
		"File.getCardSerialNumber": func(_ *managed.Context, args []any) (any, error) {
			slot, err := slotArg("File.getCardSerialNumber", args)
			if err != nil {
				return nil, err
			}
			return fs.CardSerialNumber(slot)
		},
		"File.readBytes":  fileNative("File.readBytes", 3, transfer("File.readBytes", (*file.File).Read)),
		"File.writeBytes": fileNative("File.writeBytes", 3, transfer("File.writeBytes", (*file.File).Write)),
		"File.setPos": fileNative("File.setPos", 1, func(f *file.File, args []any) (any, error) {
			pos, err := intArg("File.setPos", args, 0)
			if err != nil {
				return nil, err
			}
			return nil, f.SetPosition(pos)
		}),
		"File.setSize": fileNative("File.setSize", 1, func(f *file.File, args []any) (any, error) {
			size, err := intArg("File.setSize", args, 0)
			if err != nil {
				return nil, err
			}
			return nil, f.SetSize(size)
		}),
		"File.flush": fileNative("File.flush", 0, func(f *file.File, _ []any) (any, error) {
			return nil, f.Flush()
		}),
		"File.close": fileNative("File.close", 0, func(f *file.File, _ []any) (any, error) {
			return nil, f.Close()
		}),
		"File.delete": fileNative("File.delete", 0, func(f *file.File, _ []any) (any, error) {
			return nil, f.Delete()
		}),
		"File.rename": fileNative("File.rename", 1, func(f *file.File, args []any) (any, error) {
			to, err := arg[string]("File.rename", args, 0)
			if err != nil {
				return nil, err
			}
			return nil, f.Rename(to)
		}),
		"File.getAttributes": fileNative("File.getAttributes", 0, func(f *file.File, _ []any) (any, error) {
			a, err := f.Attributes()
			return int(a), err
		}),
		"File.setAttributes": fileNative("File.setAttributes", 1, func(f *file.File, args []any) (any, error) {
			a, err := intArg("File.setAttributes", args, 0)
			if err != nil {
				return nil, err
			}
			return nil, f.SetAttributes(file.Attr(a))
		}),
		"File.exists": pathNative("File.exists", 0, func(p string, _ []any) (any, error) {
			return fs.Exists(p), nil
		}),
		"File.isDir": pathNative("File.isDir", 0, func(p string, _ []any) (any, error) {
			return fs.IsDirectory(p), nil
		}),
		"File.isEmpty": pathNative("File.isEmpty", 0, func(p string, _ []any) (any, error) {
			return fs.IsEmpty(p)
		}),
		"File.createDir": pathNative("File.createDir", 0, func(p string, _ []any) (any, error) {
			return nil, fs.CreateDirectory(p)
		}),
		"File.getSize": pathNative("File.getSize", 0, func(p string, _ []any) (any, error) {
			return fs.Size(p)
		}),
		"File.getFreeSpace": pathNative("File.getFreeSpace", 0, func(p string, _ []any) (any, error) {
			return fs.FreeSpace(p)
		}),
		"File.chmod": pathNative("File.chmod", 1, func(p string, args []any) (any, error) {
			mode, err := intArg("File.chmod", args, 0)
			if err != nil {
				return nil, err
			}
			return fs.Chmod(p, int(mode))
		}),
		"File.listFiles": pathNative("File.listFiles", 0, func(p string, _ []any) (any, error) {
			return fs.ListFiles(p)
		}),
		"File.getTime": pathNative("File.getTime", 1, func(p string, args []any) (any, error) {
			which, err := intArg("File.getTime", args, 0)
			if err != nil {
				return nil, err
			}
			return fs.Time(p, file.Which(which))
		}),
		"File.setTime": pathNative("File.setTime", 2, func(p string, args []any) (any, error) {
			which, err := intArg("File.setTime", args, 0)
			if err != nil {
				return nil, err
			}
			t, err := arg[file.Time]("File.setTime", args, 1)
			if err != nil {
				return nil, err
			}
			return nil, fs.SetTime(p, file.Which(which), t)
		}),
	}
	for name, fn := range natives {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
