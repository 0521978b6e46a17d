// Package bridge composes the native services into a runtime and exposes
// them as named native methods.
//
// A Runtime is built from a config.Config. It owns the host filesystem,
// the managed heap, the handle table, the file system, the serial service
// and any display surfaces. Managed code reaches them through Invoke:
//
//	rt, err := bridge.New(cfg, nil)
//	ctx := rt.Heap().NewContext("main")
//	f, ok := rt.Invoke(ctx, "File.create", "/tmp/x", int(file.CreateEmpty))
//	if !ok {
//		exc := ctx.Clear()
//		...
//	}
//
// A native that fails raises a pending exception on the context and
// Invoke reports false. Natives never panic on bad arguments; a wrong
// argument count or type raises KindInvalidArgument.
package bridge
