// Package serial implements connection-oriented native services with a
// blocking accept that a concurrent close can interrupt.
//
// A Service creates servers on a Transport. Each server moves through
//
//	CREATED -> LISTENING -> (ACCEPTING <-> LISTENING) -> CLOSED
//
// Accept blocks the calling goroutine. While blocked, the server carrier,
// the new client carrier and the client instance are all LOCKED. Accept
// returns one of three outcomes:
//
//	success           a client bound to the accepted connection
//	KindIOFailure     the transport reported an error
//	KindOperationAborted  Close ran while Accept was blocked
//
// Transports signal the third outcome by returning a nil connection and a
// nil error from Listener.Accept. There is no other cancellation path.
package serial
