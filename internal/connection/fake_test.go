package connection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var errFakeClosed = errors.New("use of closed network connection")

// fakeConn is an in-memory Conn. Frames pushed to incoming are returned by
// ReadMessage in order.
type fakeConn struct {
	incoming chan fakeFrame
	closeCh  chan struct{}
	once     sync.Once

	mu       sync.Mutex
	written  [][]byte
	controls []int
	closes   int
}

type fakeFrame struct {
	data []byte
	err  error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan fakeFrame, 16),
		closeCh:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.incoming:
		if f.err != nil {
			return 0, nil, f.err
		}
		return websocket.TextMessage, f.data, nil
	case <-c.closeCh:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closes > 0 {
		return errFakeClosed
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.once.Do(func() { close(c.closeCh) })
	return nil
}

func (c *fakeConn) writtenStrings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// terminationRequested reports whether a close frame was sent and the
// socket closed.
func (c *fakeConn) terminationRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	sentCloseFrame := false
	for _, ct := range c.controls {
		if ct == websocket.CloseMessage {
			sentCloseFrame = true
		}
	}
	return sentCloseFrame && c.closes > 0
}

// fakeDialer hands out conns in order; once they run out it returns err.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	urls  []string
}

func (d *fakeDialer) DialContext(ctx context.Context, url string, _ http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.conns) == 0 {
		if d.err != nil {
			return nil, d.err
		}
		return nil, errors.New("no fake conns left")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// eventLog is an Observer that forwards every event to a channel.
type eventLog struct {
	events chan Event
}

func newEventLog() *eventLog {
	return &eventLog{events: make(chan Event, 32)}
}

func (l *eventLog) OnOpen(e Event)    { l.events <- e }
func (l *eventLog) OnMessage(e Event) { l.events <- e }
func (l *eventLog) OnClose(e Event)   { l.events <- e }
func (l *eventLog) OnError(e Event)   { l.events <- e }

func (l *eventLog) next(t *testing.T, want EventKind) Event {
	t.Helper()
	select {
	case e := <-l.events:
		if e.Kind != want {
			t.Fatalf("event kind = %s, want %s", e.Kind, want)
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s event", want)
	}
	return Event{}
}

func (l *eventLog) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case e := <-l.events:
		t.Fatalf("unexpected %s event", e.Kind)
	case <-time.After(within):
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func testConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Endpoint = "wss://example.test/socket"
	return cfg
}

// startManager runs the dispatcher until the test ends.
func startManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		m.Stop()
		<-done
	})
}
