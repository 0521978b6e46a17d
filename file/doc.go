// Package file is the cross-platform file abstraction of the bridge.
//
// A System owns the host, heap and handle table. Create returns a *File
// reference whose native handle lives in a managed carrier:
//
//	sys := file.NewSystem(host.NewOS(), heap, table)
//	f, err := sys.Create("/data/app.db", file.Create)
//	n, err := f.Read(buf, 0, buf.Len())
//	err = f.Close()
//
// Every operation returns success or exactly one *errors.Error. Conditions
// the host reports but callers never see as errors:
//
//   - reading at end of file returns 0 bytes and no error
//   - hidden, system and archive attribute bits are ignored on set
//   - setting the creation time is accepted and ignored
//   - Chmod with NoChange only reports the current permissions
//
// Stream wraps an inherited descriptor, such as a child process pipe, in
// the same *File type.
//
// Sizes and free space are int32 values that saturate at math.MaxInt32.
// Callers treat the saturated value as "at least this much".
package file
