// Package nativebridge connects a managed runtime to host resources:
// files, blocking connection services and a display surface.
//
// Native objects are referenced from managed instances through a small
// handle carrier. Every native call that touches managed memory pins the
// objects it uses for exactly the duration of the call, and every failure
// is reported with a kind from a closed error taxonomy.
//
// # Architecture Overview
//
//	nativebridge/
//	├── errors/          Structured errors and host errno mapping
//	├── resource/        Handle table with lifecycle observers
//	├── managed/         Managed heap, pinning and execution contexts
//	├── handle/          Handle carriers and the lock discipline
//	├── host/            Host filesystem capability (os or sandbox)
//	├── file/            File abstraction
//	├── serial/          Blocking listen/accept service and transports
//	├── display/         Display surface and presentation backends
//	├── config/          TOML configuration
//	├── bridge/          Runtime composition and native dispatch
//	└── cmd/bridgectl/   Command-line tool
//
// # Quick Start
//
//	cfg := config.Default()
//	rt, err := bridge.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	ctx := rt.Heap().NewContext("main")
//	f, ok := rt.Invoke(ctx, "File.create", "/tmp/out", int(file.CreateEmpty))
//	if !ok {
//	    log.Fatal(ctx.Clear())
//	}
//
// # Error Handling
//
// Operations return *errors.Error values carrying a Phase and a Kind:
//
//	if errors.IsKind(err, errors.KindNotFound) {
//	    ...
//	}
//
// Natives invoked through bridge.Runtime raise the same errors as pending
// exceptions on the managed context.
package nativebridge
