// Package handle binds native host resources to managed carrier objects and
// implements the lock discipline around native calls.
//
// A Carrier is a small managed byte array holding one native handle. It is
// created unbound, bound by the operation that opens the host resource, and
// unbound by the matching close. While bound, the carrier object is LOCKED so
// the collector cannot reclaim it out from under the host resource.
//
// Native operations that read or write managed storage run inside WithLocked,
// which pins every object involved and unpins them on every exit path:
//
//	err := handle.WithLocked(heap, func() error {
//		_, err := f.Read(buf.Bytes()[off : off+n])
//		return err
//	}, carrier.Object(), buf)
//
// Unbind is an atomic swap, so a close racing a blocked operation releases
// the host resource exactly once and the blocked side observes an unbound
// carrier instead of a dangling one.
package handle
