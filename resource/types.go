package resource

// Handle is an opaque reference to a host resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies the host resource behind a handle.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDirectory
	KindListener
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindListener:
		return "listener"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// EventType enumerates resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventLeaked
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(kind Kind, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a resource and returns (value, true) if it was present.
	Drop(handle Handle) (any, bool)

	// Close invalidates every handle and rejects further inserts.
	Close() error
}
