// Package display bridges a managed pixel buffer to a host-presented surface.
//
// A Surface owns exactly one Backend; there is no process-wide display
// state, so several surfaces and test doubles can coexist. The lifecycle is
//
//	s := display.NewSurface(display.NewMemory(640, 400), heap, display.Options{})
//	desc, err := s.Init("app", false)
//	frame, err := s.NewFrame()
//	err = s.Present(frame)
//	s.Destroy()
//
// Init reads BRIDGE_WIDTH, BRIDGE_HEIGHT and BRIDGE_FULLSCREEN once. Present
// keeps the frame LOCKED while the backend copies it.
//
// Backends:
//
//	Memory    keeps the last frame, for tests and headless runs
//	Terminal  renders with half-block cells in a true-color terminal
//	SDL       an SDL2 window, loaded at runtime without cgo
package display
