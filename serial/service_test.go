package serial

import (
	stderrors "errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/managed"
	"github.com/wippyai/native-bridge/resource"
)

const testID = "00001101-0000-1000-8000-00805f9b34fb"

func newService(t *testing.T, tr Transport) (*Service, *managed.Heap, *resource.Table) {
	t.Helper()
	heap := managed.NewHeap(0)
	table := resource.NewTable()
	t.Cleanup(func() { _ = table.Close() })
	return NewService(tr, heap, table), heap, table
}

func waitState(t *testing.T, srv *Server, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for srv.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("server state = %v, want %v", srv.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

type acceptResult struct {
	client *Client
	err    error
}

func acceptAsync(srv *Server) <-chan acceptResult {
	ch := make(chan acceptResult, 1)
	go func() {
		c, err := srv.Accept()
		ch <- acceptResult{c, err}
	}()
	return ch
}

func TestCreate_InvalidIdentifier(t *testing.T) {
	svc, _, table := newService(t, NewPipe())

	for _, id := range []string{"", "not-a-uuid", "00001101-0000-1000-8000"} {
		_, err := svc.Create(id, nil)
		if !errors.IsKind(err, errors.KindInvalidArgument) {
			t.Errorf("Create(%q) = %v, want invalid_argument", id, err)
		}
	}
	if table.Len() != 0 {
		t.Errorf("failed creates bound %d handles", table.Len())
	}
}

func TestCreate_DuplicateIdentifier(t *testing.T) {
	svc, _, _ := newService(t, NewPipe())

	srv, err := svc.Create(testID, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	if _, err := svc.Create(testID, nil); !errors.IsKind(err, errors.KindAlreadyExists) {
		t.Fatalf("duplicate Create = %v, want already_exists", err)
	}
}

func TestServer_AcceptCloseRace(t *testing.T) {
	for name, tr := range map[string]Transport{"pipe": NewPipe(), "loopback": NewLoopback()} {
		t.Run(name, func(t *testing.T) {
			svc, heap, _ := newService(t, tr)
			srv, err := svc.Create(testID, nil)
			if err != nil {
				t.Fatal(err)
			}
			if srv.State() != StateListening {
				t.Fatalf("state after create = %v", srv.State())
			}
			live := heap.Live()

			done := acceptAsync(srv)
			waitState(t, srv, StateAccepting)

			if srv.Carrier().Object().State() != managed.Locked {
				t.Error("server carrier should be LOCKED while accept blocks")
			}
			if err := srv.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			select {
			case res := <-done:
				if res.client != nil {
					t.Fatal("aborted accept returned a client")
				}
				if !errors.IsKind(res.err, errors.KindOperationAborted) {
					t.Fatalf("accept error = %v, want operation_aborted", res.err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("accept did not unblock after close")
			}

			if srv.State() != StateClosed {
				t.Errorf("state = %v, want closed", srv.State())
			}
			obj := srv.Carrier().Object()
			if obj.State() != managed.Unlocked || obj.Locks() != obj.Unlocks() {
				t.Errorf("server carrier: state %v, %d locks, %d unlocks", obj.State(), obj.Locks(), obj.Unlocks())
			}
			if heap.Live() != live+2 {
				t.Errorf("accept should allocate a client instance and carrier, live = %d", heap.Live())
			}
			if n := heap.Collect(); n < 2 {
				t.Errorf("aborted accept objects should be collectable, reclaimed %d", n)
			}
		})
	}
}

func TestServer_AcceptAfterClose(t *testing.T) {
	svc, _, _ := newService(t, NewPipe())
	srv, err := svc.Create(testID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second Close = %v, want nil", err)
	}
	if _, err := srv.Accept(); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("Accept after close = %v, want invalid_handle", err)
	}
}

func TestServer_AcceptPipe(t *testing.T) {
	tr := NewPipe()
	svc, heap, table := newService(t, tr)
	srv, err := svc.Create(testID, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	done := acceptAsync(srv)
	peer, err := tr.Dial(uuid.MustParse(testID))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer peer.Close()

	res := <-done
	if res.err != nil {
		t.Fatalf("Accept failed: %v", res.err)
	}
	exchange(t, heap, res.client, peer)

	if err := res.client.Close(); err != nil {
		t.Fatalf("client Close failed: %v", err)
	}
	if err := res.client.Close(); err != nil {
		t.Fatalf("second client Close = %v, want nil", err)
	}
	if table.Len() != 1 {
		t.Errorf("only the listener should stay bound, Len = %d", table.Len())
	}
}

func TestServer_AcceptLoopback(t *testing.T) {
	tr := NewLoopback()
	svc, heap, _ := newService(t, tr)
	srv, err := svc.Create(testID, []string{"port=0"})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	done := acceptAsync(srv)
	peer, err := tr.Dial(srv.ID())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer peer.Close()

	res := <-done
	if res.err != nil {
		t.Fatalf("Accept failed: %v", res.err)
	}
	defer res.client.Close()
	exchange(t, heap, res.client, peer)
}

// exchange sends a message each way between an accepted client and its peer.
func exchange(t *testing.T, heap *managed.Heap, c *Client, peer net.Conn) {
	t.Helper()
	if c.Carrier().Object().State() != managed.Locked {
		t.Error("bound client carrier should be LOCKED")
	}
	if c.Instance().Field(HandleField) != c.Carrier().Object() {
		t.Error("client instance should reference its carrier")
	}

	buf, _ := heap.Allocate(16)
	copy(buf.Bytes(), "ping")
	go func() { _, _ = c.Write(buf, 0, 4) }()

	got := make([]byte, 4)
	if _, err := io.ReadFull(peer, got); err != nil || string(got) != "ping" {
		t.Fatalf("peer read = %q, %v", got, err)
	}

	go func() { _, _ = peer.Write([]byte("pong")) }()
	total := 0
	for total < 4 {
		n, err := c.Read(buf, 4+total, 4-total)
		if err != nil {
			t.Fatalf("client Read failed: %v", err)
		}
		total += n
	}
	if string(buf.Bytes()[4:8]) != "pong" {
		t.Fatalf("client read %q", buf.Bytes()[4:8])
	}
	if _, err := c.Read(buf, 10, 10); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("out-of-range Read = %v, want invalid_argument", err)
	}
}

type failingTransport struct{}

func (failingTransport) Name() string { return "failing" }

func (failingTransport) Listen(uuid.UUID, []string) (Listener, error) {
	return failingListener{}, nil
}

type failingListener struct{}

func (failingListener) Accept() (io.ReadWriteCloser, error) {
	return nil, stderrors.New("radio off")
}

func (failingListener) Close() error { return nil }

func TestServer_AcceptTransportFailure(t *testing.T) {
	svc, _, _ := newService(t, failingTransport{})
	srv, err := svc.Create(testID, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	_, err = srv.Accept()
	if !errors.IsKind(err, errors.KindIOFailure) {
		t.Fatalf("Accept = %v, want io_failure", err)
	}
	if errors.IsKind(err, errors.KindOperationAborted) {
		t.Fatal("a transport failure must not look like an abort")
	}
	obj := srv.Carrier().Object()
	if obj.Locks()-obj.Unlocks() != 1 {
		t.Errorf("server carrier should hold only its binding pin, %d/%d", obj.Locks(), obj.Unlocks())
	}
	if srv.State() != StateListening {
		t.Errorf("state = %v, want listening", srv.State())
	}
}

func TestNewTransport(t *testing.T) {
	for _, name := range []string{"pipe", "loopback", "rfcomm"} {
		tr, err := NewTransport(name)
		if err != nil || tr.Name() != name {
			t.Errorf("NewTransport(%q) = %v, %v", name, tr, err)
		}
	}
	if _, err := NewTransport("carrier-pigeon"); !errors.IsKind(err, errors.KindNotSupported) {
		t.Errorf("unknown transport = %v, want not_supported", err)
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		params  []string
		want    int
		wantErr bool
	}{
		{nil, 7, false},
		{[]string{"port=80"}, 80, false},
		{[]string{"name=x", " port = 9 "}, 9, false},
		{[]string{"portable=1"}, 7, false},
		{[]string{"port=eighty"}, 0, true},
	}
	for _, tt := range tests {
		got, err := intParam(tt.params, "port", 7)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("intParam(%v) = %d, %v", tt.params, got, err)
		}
	}
}

func TestLoopback_RejectsBadPort(t *testing.T) {
	svc, _, _ := newService(t, NewLoopback())
	if _, err := svc.Create(testID, []string{"port=70000"}); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("Create with bad port = %v, want invalid_argument", err)
	}
}
