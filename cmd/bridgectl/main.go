package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wippyai/native-bridge/bridge"
	"github.com/wippyai/native-bridge/config"
	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/file"
	"github.com/wippyai/native-bridge/serial"
)

const usage = `Usage: bridgectl [-config file.toml] <command> [args]
       bridgectl [-config file.toml] -i [dir]  (interactive mode)

Commands:
  stat <path>             show size, times and attributes
  ls <dir>                list a directory
  mkdir <dir>             create a directory and its parents
  chmod <path> <mode>     set permissions, e.g. 644
  free <path>             free space on the volume holding path
  serve <uuid> [k=v ...]  listen and echo every accepted client
  display [frames]        draw a test pattern`

func main() {
	var (
		configFile  = flag.String("config", "", "Path to TOML configuration")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		dir := "."
		if flag.NArg() > 0 {
			dir = flag.Arg(0)
		}
		if err := runInteractive(cfg, dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func run(cfg config.Config, cmd string, args []string) error {
	rt, err := bridge.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: missing arguments\n\n%s", cmd, usage)
		}
		return nil
	}

	switch cmd {
	case "stat":
		if err := need(1); err != nil {
			return err
		}
		return stat(rt.Files(), args[0])

	case "ls":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		names, err := rt.Files().ListFiles(dir)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil

	case "mkdir":
		if err := need(1); err != nil {
			return err
		}
		return rt.Files().CreateDirectory(args[0])

	case "chmod":
		if err := need(2); err != nil {
			return err
		}
		mode, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("chmod: mode %q: %w", args[1], err)
		}
		prev, err := rt.Files().Chmod(args[0], mode)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %03d -> %03d\n", args[0], prev, mode)
		return nil

	case "free":
		p := "/"
		if len(args) > 0 {
			p = args[0]
		}
		free, err := rt.Files().FreeSpace(p)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d bytes free\n", p, free)
		return nil

	case "serve":
		if err := need(1); err != nil {
			return err
		}
		return serve(rt, args[0], args[1:])

	case "display":
		frames := 60
		if len(args) > 0 {
			if frames, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("display: frames %q: %w", args[0], err)
			}
		}
		return testPattern(rt, frames)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func stat(fs *file.System, p string) error {
	if !fs.Exists(p) {
		return errors.NotFound(errors.PhaseFile, "stat", p)
	}
	size, err := fs.Size(p)
	if err != nil {
		return err
	}
	f, err := fs.Create(p, file.DontOpen)
	if err != nil {
		return err
	}
	attrs, err := f.Attributes()
	if err != nil {
		return err
	}

	kind := "file"
	if fs.IsDirectory(p) {
		kind = "directory"
	}
	fmt.Printf("Path: %s\n", p)
	fmt.Printf("Type: %s\n", kind)
	fmt.Printf("Size: %d\n", size)
	fmt.Printf("Attributes: %s\n", formatAttrs(attrs))
	for _, w := range []struct {
		name  string
		which file.Which
	}{{"Created", file.TimeCreated}, {"Modified", file.TimeModified}, {"Accessed", file.TimeAccessed}} {
		t, err := fs.Time(p, w.which)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", w.name, t.Std().Format(time.RFC3339))
	}
	return nil
}

func formatAttrs(a file.Attr) string {
	var parts []string
	for _, f := range []struct {
		bit  file.Attr
		name string
	}{{file.AttrArchive, "archive"}, {file.AttrHidden, "hidden"}, {file.AttrReadOnly, "read-only"}, {file.AttrSystem, "system"}} {
		if a&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "normal"
	}
	return strings.Join(parts, ", ")
}

// serve echoes every client until interrupted.
func serve(rt *bridge.Runtime, id string, params []string) error {
	if len(params) == 0 {
		params = rt.Config().Serial.Params
	}
	srv, err := rt.Serial().Create(id, params)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Listening on %s (%s), Ctrl-C to stop\n", id, rt.Serial().Transport().Name())
	if lb, ok := rt.Serial().Transport().(*serial.Loopback); ok {
		if addr, ok := lb.Addr(srv.ID()); ok {
			fmt.Printf("Address: %s\n", addr)
		}
	}
	return serveUntil(ctx, rt, srv)
}

// serveUntil accepts and echoes clients until ctx is done, then closes the
// server and every connected client.
func serveUntil(ctx context.Context, rt *bridge.Runtime, srv *serial.Server) error {
	var (
		mu      sync.Mutex
		clients = make(map[*serial.Client]struct{})
		wg      sync.WaitGroup
	)
	done := make(chan struct{})
	defer wg.Wait()
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = srv.Close()
		mu.Lock()
		for c := range clients {
			_ = c.Close()
		}
		mu.Unlock()
	}()

	for {
		c, err := srv.Accept()
		if errors.IsKind(err, errors.KindOperationAborted) || errors.IsKind(err, errors.KindInvalidHandle) {
			return nil
		}
		if err != nil {
			return err
		}

		mu.Lock()
		clients[c] = struct{}{}
		mu.Unlock()
		if ctx.Err() != nil {
			_ = c.Close()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			echo(rt, c)
			mu.Lock()
			delete(clients, c)
			mu.Unlock()
		}()
	}
}

func echo(rt *bridge.Runtime, c *serial.Client) {
	defer c.Close()
	buf, err := rt.Heap().Allocate(512)
	if err != nil {
		return
	}
	for {
		n, err := c.Read(buf, 0, buf.Len())
		if err != nil || n == 0 {
			return
		}
		if _, err := c.Write(buf, 0, n); err != nil {
			return
		}
	}
}

// testPattern draws a moving gradient.
func testPattern(rt *bridge.Runtime, frames int) error {
	s, err := rt.NewSurface()
	if err != nil {
		return err
	}
	defer s.Destroy()

	d := rt.Config().Display
	desc, err := s.Init(d.Title, d.Fullscreen)
	if err != nil {
		return err
	}
	frame, err := s.NewFrame()
	if err != nil {
		return err
	}

	for i := 0; i < frames; i++ {
		px := frame.Bytes()
		for y := 0; y < desc.Height; y++ {
			for x := 0; x < desc.Width; x++ {
				r := uint32((x + i) * 255 / max(desc.Width, 1) & 0xFF)
				g := uint32(y * 255 / max(desc.Height, 1) & 0xFF)
				b := uint32(i * 4 & 0xFF)
				binary.LittleEndian.PutUint32(px[y*desc.Pitch+x*4:], 0xFF000000|r<<16|g<<8|b)
			}
		}
		if err := s.Present(frame); err != nil {
			return err
		}
		time.Sleep(33 * time.Millisecond)
	}
	return nil
}
