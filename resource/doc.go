// Package resource provides the native handle table.
//
// A native handle is an opaque integer standing for a host resource: an open
// file, a listening endpoint, an accepted connection. Managed code never sees
// the host resource itself, only the handle stored in its carrier object.
//
// # Handle Table
//
// The Table maps handles to host resources:
//
//	table := resource.NewTable()
//
//	// Insert a resource, get a handle
//	h := table.Insert(resource.KindFile, f)
//
//	// Retrieve it by handle
//	value, ok := table.Get(h)
//
//	// Remove it (the caller closes it)
//	value, ok := table.Remove(h)
//
// Handle 0 is reserved and means "unbound". A handle value is only reused
// after the resource that held it was removed, so two live carriers can
// never hold the same handle.
//
// # Kinds
//
// Each entry records the kind of resource behind it, which makes typed
// lookups possible:
//
//	value, ok := table.GetTyped(h, resource.KindListener)
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventLeaked {
//	        log.Printf("handle %d leaked", e.Handle)
//	    }
//	}))
//
// # Shutdown
//
// Table.Close releases every resource still present. Anything released that
// way was never closed by its owner and is reported as EventLeaked.
package resource
