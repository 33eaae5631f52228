package display

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type keyEvent struct {
	label   string
	pressed bool
}

type recordingKeys struct {
	mu     sync.Mutex
	events []keyEvent
}

func (k *recordingKeys) OnKeyEvent(source, label string, pressed bool) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.events = append(k.events, keyEvent{label, pressed})
	return true
}

func (k *recordingKeys) snapshot() []keyEvent {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]keyEvent(nil), k.events...)
}

// pipeDialer fails the first failFirst dials, then hands out queued conns.
type pipeDialer struct {
	conns     chan net.Conn
	failFirst int32
	dials     atomic.Int32
}

func (d *pipeDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if d.dials.Add(1) <= d.failFirst {
		return nil, errors.New("no such device")
	}
	select {
	case c := <-d.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fakeDisplay is the remote end of a pipe.
type fakeDisplay struct {
	conn net.Conn
	in   chan Envelope
}

func newFakeDisplay(conn net.Conn) *fakeDisplay {
	f := &fakeDisplay{conn: conn, in: make(chan Envelope, 16)}
	go func() {
		defer close(f.in)
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			var env Envelope
			if json.Unmarshal(sc.Bytes(), &env) == nil {
				f.in <- env
			}
		}
	}()
	return f
}

func (f *fakeDisplay) expect(t *testing.T, msgType string) Envelope {
	t.Helper()
	select {
	case env, ok := <-f.in:
		if !ok {
			t.Fatalf("connection closed while waiting for %s", msgType)
		}
		if env.Type != msgType {
			t.Fatalf("got %s, want %s", env.Type, msgType)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", msgType)
	}
	return Envelope{}
}

func (f *fakeDisplay) send(t *testing.T, msgType string, payload interface{}) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	line, _ := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if _, err := f.conn.Write(append(line, '\n')); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
}

func (f *fakeDisplay) expectLayout(t *testing.T) LayoutCommand {
	t.Helper()
	env := f.expect(t, MsgLayout)
	var cmd LayoutCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func startClient(t *testing.T, d Dialer, keys KeyHandler) (context.CancelFunc, chan error) {
	t.Helper()
	cfg := Config{ConnectTimeout: 100 * time.Millisecond, RetryDelay: 10 * time.Millisecond}
	c := NewClient(d, keys, labels, cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return cancel, done
}

func stopClient(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClientSessionLifecycle(t *testing.T) {
	d := &pipeDialer{conns: make(chan net.Conn, 2)}
	local, remote := net.Pipe()
	d.conns <- local
	keys := &recordingKeys{}

	cancel, done := startClient(t, d, keys)
	disp := newFakeDisplay(remote)

	disp.expect(t, MsgHello)
	disp.send(t, MsgConnected, Screen{Width: 800, Height: 480})

	layout := disp.expectLayout(t)
	if len(layout.Buttons) != 8 || layout.Buttons[1].X != 100 || layout.Buttons[1].H != 480 {
		t.Errorf("unexpected layout %+v", layout)
	}

	disp.send(t, MsgTouch, Touch{Label: "C", Down: true})
	disp.send(t, MsgTouch, Touch{Label: "C", Down: false})
	waitFor(t, func() bool { return len(keys.snapshot()) == 2 })
	got := keys.snapshot()
	if got[0] != (keyEvent{"C", true}) || got[1] != (keyEvent{"C", false}) {
		t.Errorf("unexpected key events %+v", got)
	}

	// rotation: the same keys are rebuilt for the new size
	disp.send(t, MsgRedraw, Screen{Width: 480, Height: 800})
	layout = disp.expectLayout(t)
	if layout.Width != 480 || layout.Buttons[7].X != 7*60 || layout.Buttons[7].W != 60 {
		t.Errorf("unexpected redraw layout %+v", layout)
	}

	// dropping the link releases any held key and triggers a redial
	remote.Close()
	waitFor(t, func() bool { return len(keys.snapshot()) == 3 && d.dials.Load() == 2 })
	if ev := keys.snapshot()[2]; ev.pressed {
		t.Errorf("expected release on disconnect, got %+v", ev)
	}

	stopClient(t, cancel, done)
}

func TestClientRetriesUntilDisplayAnswers(t *testing.T) {
	d := &pipeDialer{conns: make(chan net.Conn, 2), failFirst: 2}

	// first reachable display never answers the handshake
	silentLocal, silentRemote := net.Pipe()
	go io.Copy(io.Discard, silentRemote)
	d.conns <- silentLocal

	local, remote := net.Pipe()
	d.conns <- local

	cancel, done := startClient(t, d, &recordingKeys{})
	disp := newFakeDisplay(remote)
	disp.expect(t, MsgHello)
	disp.send(t, MsgConnected, Screen{Width: 320, Height: 240})
	layout := disp.expectLayout(t)
	if layout.Buttons[0].W != 40 {
		t.Errorf("unexpected layout %+v", layout)
	}
	if n := d.dials.Load(); n != 4 {
		t.Errorf("expected 4 dials (2 errors, 1 timeout, 1 success), got %d", n)
	}

	stopClient(t, cancel, done)
	silentRemote.Close()
}
