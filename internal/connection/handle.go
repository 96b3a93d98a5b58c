package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handle is one connection attempt to an endpoint. Its status is driven by
// the transport; the only control it offers is Close.
type Handle struct {
	id           uuid.UUID
	url          string
	writeTimeout time.Duration
	dialer       Dialer
	emit         func(Event)
	logger       *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	// State
	mu             sync.Mutex
	status         Status
	conn           Conn
	cancelDial     context.CancelFunc
	closeRequested bool
	done           chan struct{}
}

func newHandle(url string, dialer Dialer, writeTimeout time.Duration, emit func(Event), logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Handle{
		id:           id,
		url:          url,
		writeTimeout: writeTimeout,
		dialer:       dialer,
		emit:         emit,
		logger:       logger.With("handle", id.String()),
		done:         make(chan struct{}),
	}
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// URL returns the endpoint the handle targets.
func (h *Handle) URL() string {
	return h.url
}

// Status returns the last status reported by the transport.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// CloseRequested reports whether Close has been called.
func (h *Handle) CloseRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeRequested
}

// Done is closed once the transport has finished and the final event has
// been emitted.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Send writes a text message. It fails with ErrNotConnected unless the
// handle is open.
func (h *Handle) Send(data []byte) error {
	h.mu.Lock()
	if h.status != StatusOpen || h.closeRequested {
		h.mu.Unlock()
		return ErrNotConnected
	}
	conn := h.conn
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close requests termination: a pending dial is abandoned, an open
// connection gets a normal close frame and is shut down. Calling Close more
// than once is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closeRequested {
		h.mu.Unlock()
		return nil
	}
	h.closeRequested = true
	conn := h.conn
	cancel := h.cancelDial
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}

	h.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	h.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		h.logger.Debug("failed to send close frame", "error", err)
	}

	return conn.Close()
}

// start dials in the background. ctx bounds the dial only.
func (h *Handle) start(ctx context.Context) {
	dialCtx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancelDial = cancel
	h.mu.Unlock()

	go h.run(dialCtx, cancel)
}

func (h *Handle) run(ctx context.Context, cancel context.CancelFunc) {
	defer close(h.done)

	h.logger.Debug("dialing", "url", h.url)
	conn, err := h.dialer.DialContext(ctx, h.url, nil)
	cancel()

	if err != nil {
		h.mu.Lock()
		h.status = StatusClosed
		local := h.closeRequested
		h.mu.Unlock()

		if !local {
			h.emit(Event{Kind: EventFailed, Handle: h, At: time.Now(), Err: err, ErrKind: ClassifyError(err)})
		}
		h.emit(Event{Kind: EventClosed, Handle: h, At: time.Now(), Code: websocket.CloseAbnormalClosure, Local: local})
		return
	}

	h.mu.Lock()
	if h.closeRequested {
		// Close raced the handshake; the connection never counts as open.
		h.status = StatusClosed
		h.mu.Unlock()
		conn.Close()
		h.emit(Event{Kind: EventClosed, Handle: h, At: time.Now(), Code: websocket.CloseNormalClosure, Local: true})
		return
	}
	h.conn = conn
	h.status = StatusOpen
	h.mu.Unlock()

	h.emit(Event{Kind: EventOpened, Handle: h, At: time.Now()})

	h.readLoop(conn)
}

// readLoop emits a message event per frame until the transport fails or closes.
func (h *Handle) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err == nil {
			h.emit(Event{Kind: EventMessage, Handle: h, At: receivedAt, Payload: data})
			continue
		}

		h.mu.Lock()
		h.status = StatusClosed
		local := h.closeRequested
		h.mu.Unlock()
		conn.Close()

		closed := Event{Kind: EventClosed, Handle: h, At: receivedAt, Code: websocket.CloseAbnormalClosure, Local: local}

		var closeErr *websocket.CloseError
		switch {
		case local:
			closed.Code = websocket.CloseNormalClosure
			if errors.As(err, &closeErr) {
				closed.Code = closeErr.Code
				closed.Reason = closeErr.Text
			}
		case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
			closed.Code = closeErr.Code
			closed.Reason = closeErr.Text
		default:
			h.emit(Event{Kind: EventFailed, Handle: h, At: receivedAt, Err: err, ErrKind: ClassifyError(err)})
		}

		h.emit(closed)
		return
	}
}
