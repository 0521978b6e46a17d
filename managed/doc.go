// Package managed is the boundary between the native bridge and the managed
// runtime that calls into it.
//
// The bridge consumes four things from the runtime: allocation of byte-array
// objects and typed instances, pinning and unpinning of objects, and raising
// exceptions on the calling execution context. This package implements that
// boundary as a small in-process heap so the bridge can be exercised without
// an interpreter.
//
// # Lock state
//
// Every object is either LOCKED (pinned, possibly mid-use by a blocking native
// call) or UNLOCKED. Collect never reclaims a LOCKED object and Compact never
// relocates its storage, so native code may hold a raw slice of a pinned
// object's bytes for as long as the object stays pinned.
//
// Pins nest. Every Pin and Unpin is counted on the object, which makes lock
// balance observable from tests:
//
//	obj, _ := heap.Allocate(4)
//	heap.Pin(obj)
//	defer heap.Unpin(obj)
//
// # Exceptions
//
// Native operations report failure with an error. The dispatcher turns that
// error into a pending Exception on the calling Context:
//
//	if err := op(); err != nil {
//		ctx.Throw(err)
//	}
package managed
