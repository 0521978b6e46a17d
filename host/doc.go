// Package host is the host OS boundary of the bridge.
//
// Every file-system primitive the bridge needs is expressed by the Host
// interface. The implementation is picked at startup:
//
//	OS       the process file system (os + golang.org/x/sys/unix)
//	Sandbox  a directory-rooted file system on wazero's sysfs.DirFS
//
// Paths given to a Sandbox are resolved inside its root; ".." can never
// escape it. Errors are returned as *fs.PathError wrapping a host errno so
// errors.FromHost can classify them the same way for both implementations.
package host
