package bridge

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/native-bridge/config"
	"github.com/wippyai/native-bridge/display"
	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/file"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/serial"
)

func newRuntime(t *testing.T) (*Runtime, *observer.ObservedLogs) {
	t.Helper()
	cfg := config.Default()
	cfg.Files.Host = "sandbox"
	cfg.Files.Root = t.TempDir()
	cfg.Display.Width, cfg.Display.Height = 8, 4

	core, logs := observer.New(zapcore.DebugLevel)
	rt, err := New(cfg, zap.New(core))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt, logs
}

func mustInvoke(t *testing.T, rt *Runtime, ctx *managed.Context, name string, args ...any) any {
	t.Helper()
	v, ok := rt.Invoke(ctx, name, args...)
	if !ok {
		t.Fatalf("%s raised %v", name, ctx.Clear())
	}
	return v
}

func expectRaise(t *testing.T, rt *Runtime, ctx *managed.Context, kind errors.Kind, name string, args ...any) {
	t.Helper()
	if _, ok := rt.Invoke(ctx, name, args...); ok {
		t.Fatalf("%s succeeded, want %s", name, kind)
	}
	exc := ctx.Clear()
	if exc == nil || exc.Kind != kind {
		t.Fatalf("%s raised %v, want %s", name, exc, kind)
	}
}

func TestRuntime_FileNatives(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")

	mustInvoke(t, rt, ctx, "File.createDir", "/data/logs")
	f := mustInvoke(t, rt, ctx, "File.create", "/data/logs/a.txt", int(file.CreateEmpty)).(*managed.Object)
	if f.TypeName() != FileType || f.Field(handleField) == nil {
		t.Fatalf("File.create returned %s without a handle", f.TypeName())
	}

	buf, _ := rt.Heap().Allocate(5)
	copy(buf.Bytes(), "hello")
	if n := mustInvoke(t, rt, ctx, "File.writeBytes", f, buf, 0, 5); n != 5 {
		t.Fatalf("writeBytes = %v", n)
	}
	mustInvoke(t, rt, ctx, "File.flush", f)
	mustInvoke(t, rt, ctx, "File.setPos", f, int64(1))

	out, _ := rt.Heap().Allocate(8)
	if n := mustInvoke(t, rt, ctx, "File.readBytes", f, out, 0, 8); n != 4 {
		t.Fatalf("readBytes = %v, want 4", n)
	}
	if string(out.Bytes()[:4]) != "ello" {
		t.Errorf("read %q", out.Bytes()[:4])
	}
	mustInvoke(t, rt, ctx, "File.setSize", f, 2)
	mustInvoke(t, rt, ctx, "File.close", f)
	mustInvoke(t, rt, ctx, "File.close", f)

	if got := mustInvoke(t, rt, ctx, "File.getSize", "/data/logs/a.txt"); got != int32(2) {
		t.Errorf("getSize = %v, want 2", got)
	}
	if got := mustInvoke(t, rt, ctx, "File.exists", "/data/logs/a.txt"); got != true {
		t.Error("exists = false")
	}
	if got := mustInvoke(t, rt, ctx, "File.isDir", "/data"); got != true {
		t.Error("isDir(/data) = false")
	}
	if got := mustInvoke(t, rt, ctx, "File.isEmpty", "/data/logs"); got != false {
		t.Error("isEmpty(/data/logs) = true")
	}
	if got := mustInvoke(t, rt, ctx, "File.listFiles", "/data"); !reflect.DeepEqual(got, []string{"logs/"}) {
		t.Errorf("listFiles = %v", got)
	}
	if got := mustInvoke(t, rt, ctx, "File.chmod", "/data/logs/a.txt", 640); got != 666 {
		t.Errorf("chmod returned %v, want 666", got)
	}
	if got := mustInvoke(t, rt, ctx, "File.getFreeSpace", "/"); got.(int32) < 0 {
		t.Errorf("getFreeSpace = %v", got)
	}

	mustInvoke(t, rt, ctx, "File.rename", f, "/data/b.txt")
	mustInvoke(t, rt, ctx, "File.delete", f)
	if got := mustInvoke(t, rt, ctx, "File.exists", "/data/b.txt"); got != false {
		t.Error("file survived delete")
	}
	if ctx.Pending() != nil {
		t.Errorf("unexpected pending exception %v", ctx.Pending())
	}
}

func TestRuntime_RaisesExceptions(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")
	buf, _ := rt.Heap().Allocate(4)

	expectRaise(t, rt, ctx, errors.KindNotFound, "File.create", "/missing/x", int(file.ReadOnly))
	expectRaise(t, rt, ctx, errors.KindNotSupported, "File.teleport", "/x")
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.exists")
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.exists", 42)
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.readBytes", buf, buf, 0, 1)
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.create", "/x", "rw")

	f := mustInvoke(t, rt, ctx, "File.create", "/x", int(file.CreateEmpty))
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.readBytes", f, buf, 2, 4)
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.readBytes", f, f, 0, 1)
	mustInvoke(t, rt, ctx, "File.close", f)
	expectRaise(t, rt, ctx, errors.KindInvalidHandle, "File.readBytes", f, buf, 0, 1)

	stray, _ := rt.Heap().CreateInstance(FileType)
	expectRaise(t, rt, ctx, errors.KindInvalidHandle, "File.flush", stray)
}

func TestRuntime_SerialNatives(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")
	id := uuid.New()

	srv := mustInvoke(t, rt, ctx, "SerialPortServer.create", id.String())
	expectRaise(t, rt, ctx, errors.KindAlreadyExists, "SerialPortServer.create", id.String(), []string(nil))
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "SerialPortServer.create", "not-a-uuid")

	pipe := rt.Serial().Transport().(*serial.Pipe)
	done := make(chan error, 1)
	go func() {
		conn, err := pipe.Dial(id)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("ping")); err != nil {
			done <- err
			return
		}
		reply := make([]byte, 4)
		_, err = conn.Read(reply)
		done <- err
	}()

	client := mustInvoke(t, rt, ctx, "SerialPortServer.accept", srv)
	buf, _ := rt.Heap().Allocate(4)
	if n := mustInvoke(t, rt, ctx, "SerialPortClient.read", client, buf, 0, 4); n != 4 {
		t.Fatalf("read = %v", n)
	}
	if string(buf.Bytes()) != "ping" {
		t.Errorf("read %q", buf.Bytes())
	}
	copy(buf.Bytes(), "pong")
	mustInvoke(t, rt, ctx, "SerialPortClient.write", client, buf, 0, 4)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("peer failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("peer timed out")
	}

	mustInvoke(t, rt, ctx, "SerialPortClient.close", client)
	mustInvoke(t, rt, ctx, "SerialPortServer.close", srv)
	mustInvoke(t, rt, ctx, "SerialPortServer.close", srv)
	expectRaise(t, rt, ctx, errors.KindInvalidHandle, "SerialPortServer.accept", srv)
}

func TestRuntime_AcceptAbortedByClose(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("acceptor")
	srv := mustInvoke(t, rt, ctx, "SerialPortServer.create", uuid.NewString()).(*managed.Object)
	server := srv.Field(serverField).(*serial.Server)

	done := make(chan *managed.Exception, 1)
	go func() {
		_, ok := rt.Invoke(ctx, "SerialPortServer.accept", srv)
		if ok {
			done <- nil
			return
		}
		done <- ctx.Clear()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for server.State() != serial.StateAccepting {
		if time.Now().After(deadline) {
			t.Fatal("accept never blocked")
		}
		time.Sleep(time.Millisecond)
	}

	closer := rt.Heap().NewContext("closer")
	mustInvoke(t, rt, closer, "SerialPortServer.close", srv)

	select {
	case exc := <-done:
		if exc == nil || exc.Kind != errors.KindOperationAborted {
			t.Fatalf("accept raised %v, want operation_aborted", exc)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("accept was not interrupted")
	}
}

func TestRuntime_DisplayNatives(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")

	d := mustInvoke(t, rt, ctx, "Display.init", "demo", false).(*managed.Object)
	if d.Field("width") != 8 || d.Field("height") != 4 || d.Field("pitch") != 32 {
		t.Fatalf("descriptor fields = %v %v %v", d.Field("width"), d.Field("height"), d.Field("pitch"))
	}
	frame := mustInvoke(t, rt, ctx, "Display.newFrame", d).(*managed.Object)
	if frame.Len() != 128 {
		t.Errorf("frame size = %d", frame.Len())
	}
	mustInvoke(t, rt, ctx, "Display.present", d, frame)
	if frame.State() != managed.Unlocked {
		t.Error("frame left locked")
	}

	small, _ := rt.Heap().Allocate(3)
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "Display.present", d, small)

	mustInvoke(t, rt, ctx, "Display.destroy", d)
	mustInvoke(t, rt, ctx, "Display.destroy", d)
	expectRaise(t, rt, ctx, errors.KindInvalidHandle, "Display.present", d, frame)
}

func TestRuntime_CardNatives(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")

	if got := mustInvoke(t, rt, ctx, "File.isCardInserted", 0); got != true {
		t.Errorf("isCardInserted = %v", got)
	}
	if got := mustInvoke(t, rt, ctx, "File.getCardSerialNumber", 1); got != "" {
		t.Errorf("getCardSerialNumber = %q", got)
	}
	expectRaise(t, rt, ctx, errors.KindInvalidArgument, "File.isCardInserted", "sd0")
}

func surfaceCount(rt *Runtime) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.surfaces)
}

func TestDisplayInit_FailureForgetsSurface(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := rt.Heap().NewContext("test")

	rt.newBackend = func(d config.Display) display.Backend {
		m := display.NewMemory(d.Width, d.Height)
		m.InitErr = errors.Unsupported(errors.PhaseDisplay, "init", "no video device")
		return m
	}
	for i := 0; i < 3; i++ {
		expectRaise(t, rt, ctx, errors.KindIOFailure, "Display.init", "demo", false)
	}
	if n := surfaceCount(rt); n != 0 {
		t.Errorf("runtime still tracks %d failed surfaces", n)
	}

	rt.newBackend = displayBackend
	d := mustInvoke(t, rt, ctx, "Display.init", "demo", false)
	if n := surfaceCount(rt); n != 1 {
		t.Fatalf("surfaces = %d, want 1", n)
	}
	mustInvoke(t, rt, ctx, "Display.destroy", d)
	if n := surfaceCount(rt); n != 0 {
		t.Errorf("surfaces after destroy = %d, want 0", n)
	}
}

func TestRuntime_CloseReleasesLeakedHandles(t *testing.T) {
	rt, logs := newRuntime(t)
	ctx := rt.Heap().NewContext("test")

	mustInvoke(t, rt, ctx, "File.create", "/leak", int(file.CreateEmpty))
	mustInvoke(t, rt, ctx, "SerialPortServer.create", uuid.NewString())
	s, err := rt.NewSurface()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Init("t", false); err != nil {
		t.Fatal(err)
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if got := logs.FilterMessage("handle leaked").Len(); got != 2 {
		t.Errorf("logged %d leaks, want 2", got)
	}
	if rt.Table().Len() != 0 {
		t.Errorf("%d handles left after Close", rt.Table().Len())
	}
	if _, ok := s.Descriptor(); ok {
		t.Error("surface survived Close")
	}
	if _, err := rt.NewSurface(); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Errorf("NewSurface after Close = %v", err)
	}
}

func TestRegistry(t *testing.T) {
	rt, _ := newRuntime(t)

	noop := func(*managed.Context, []any) (any, error) { return "ok", nil }
	if err := rt.Register("File.create", noop); !errors.IsKind(err, errors.KindAlreadyExists) {
		t.Errorf("duplicate Register = %v", err)
	}
	if err := rt.Register("", noop); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("empty name = %v", err)
	}
	if err := rt.Register("Custom.nil", nil); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("nil native = %v", err)
	}
	if err := rt.Register("Custom.noop", noop); err != nil {
		t.Fatal(err)
	}

	ctx := rt.Heap().NewContext("test")
	if v := mustInvoke(t, rt, ctx, "Custom.noop"); v != "ok" {
		t.Errorf("Custom.noop = %v", v)
	}

	names := rt.Natives().Names()
	for _, want := range []string{
		"File.create", "File.readBytes", "File.writeBytes", "File.setPos", "File.setSize",
		"File.flush", "File.close", "File.delete", "File.rename", "File.exists", "File.isDir",
		"File.isEmpty", "File.createDir", "File.getSize", "File.getFreeSpace", "File.chmod",
		"File.listFiles", "File.stream", "File.isCardInserted", "File.getCardSerialNumber",
		"SerialPortServer.create", "SerialPortServer.accept", "SerialPortServer.close",
	} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s is not registered", want)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Display.Backend = "vga"
	if _, err := New(cfg, zap.NewNop()); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("New = %v, want invalid_argument", err)
	}

	cfg = config.Default()
	cfg.Files.Host = "sandbox"
	cfg.Files.Root = "/definitely/not/here"
	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatal("New with a missing sandbox root should fail")
	}
}

func TestNewLogger(t *testing.T) {
	for _, c := range []config.Log{{Level: "debug", Development: true}, {Level: "error"}} {
		l, err := NewLogger(c)
		if err != nil {
			t.Fatalf("NewLogger(%+v) = %v", c, err)
		}
		if !l.Core().Enabled(zapcore.ErrorLevel) {
			t.Errorf("%+v: error level disabled", c)
		}
	}
	if _, err := NewLogger(config.Log{Level: "shouty"}); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("bad level = %v", err)
	}
}
