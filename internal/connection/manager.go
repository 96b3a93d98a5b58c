package connection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/armolymp/webSocket-python-react-native/internal/queue"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithObserver adds observers notified after the manager handles an event.
func WithObserver(obs ...Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, obs...) }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// Manager owns the single held Handle. Open and Close are the two user
// actions; Run dispatches transport events.
type Manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	dialer    Dialer
	observers observers
	recorder  Recorder

	holder Holder
	events *queue.Queue[Event]

	// Dials are bound to ctx; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	statsMu sync.Mutex
	stats   ManagerStats
}

// NewManager creates a Manager. Run must be called for events to be handled.
func NewManager(cfg ManagerConfig, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		recorder: nopRecorder{},
		events:   queue.New[Event](cfg.EventBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewWebsocketDialer(cfg.HandshakeTimeout)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Open creates a Handle to the configured endpoint, starts dialing in the
// background and stores it as the held handle. It never blocks and never
// fails; dial errors arrive as EventFailed.
//
// A previously held handle is abandoned without being closed unless
// CloseOnReopen is set.
func (m *Manager) Open() *Handle {
	h := newHandle(m.cfg.Endpoint, m.dialer, m.cfg.WriteTimeout, m.enqueue, m.logger)

	if prev := m.holder.Current(); prev != nil {
		if m.cfg.CloseOnReopen {
			m.logger.Info("closing held connection before reopening", "handle", prev.ID().String())
			if err := prev.Close(); err != nil {
				m.logger.Debug("close previous handle", "handle", prev.ID().String(), "error", err)
			}
		} else {
			m.logger.Warn("replacing held connection without closing it",
				"abandoned", prev.ID().String(),
				"status", prev.Status().String(),
			)
			m.recorder.HandleAbandoned()
			m.statsMu.Lock()
			m.stats.Abandoned++
			m.statsMu.Unlock()
		}
	}

	h.start(m.ctx)
	m.holder.Set(h)
	m.recorder.SetHolding(true)

	m.logger.Debug("connection opening", "handle", h.ID().String(), "url", h.URL())
	return h
}

// Close requests termination of the held handle and forgets it. Returns
// false, doing nothing, when no handle is held.
func (m *Manager) Close() bool {
	h := m.holder.Current()
	if h == nil {
		return false
	}

	if err := h.Close(); err != nil {
		m.logger.Debug("close handle", "handle", h.ID().String(), "error", err)
	}
	m.holder.Clear()
	m.recorder.SetHolding(false)
	return true
}

// Current returns the held handle, or nil. The handle may already report
// StatusClosed if the server hung up.
func (m *Manager) Current() *Handle {
	return m.holder.Current()
}

// Stats returns current counters.
func (m *Manager) Stats() ManagerStats {
	m.statsMu.Lock()
	stats := m.stats
	m.statsMu.Unlock()
	stats.Holding = m.holder.Current() != nil
	return stats
}

// Run dispatches events until ctx is cancelled or Stop is called. Events
// already queued are dispatched before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, m.events.Close)
	defer stop()

	m.logger.Debug("event dispatcher started")
	for {
		ev, ok := m.events.Pop()
		if !ok {
			m.logger.Debug("event dispatcher stopped")
			return nil
		}
		m.dispatch(ev)
	}
}

// Stop aborts pending dials, closes the held handle and ends Run. Abandoned
// handles are left as they are.
func (m *Manager) Stop() {
	m.cancel()
	m.Close()
	m.events.Close()
}

func (m *Manager) enqueue(ev Event) {
	if !m.events.Push(ev) {
		m.logger.Debug("dropping event after stop", "kind", ev.Kind.String(), "handle", ev.HandleID().String())
	}
}

// dispatch handles one event, then notifies observers.
func (m *Manager) dispatch(ev Event) {
	id := ev.HandleID().String()

	switch ev.Kind {
	case EventOpened:
		m.logger.Info("websocket connection opened", "handle", id, "url", ev.Handle.URL())
		m.recorder.HandleOpened()
		m.statsMu.Lock()
		m.stats.Opened++
		m.statsMu.Unlock()
		if m.cfg.Greeting != "" {
			if err := ev.Handle.Send([]byte(m.cfg.Greeting)); err != nil {
				m.logger.Warn("failed to send greeting", "handle", id, "error", err)
			}
		}
		m.observers.OnOpen(ev)

	case EventMessage:
		m.logger.Info("received", "handle", id, "payload", string(ev.Payload))
		m.recorder.MessageReceived(len(ev.Payload))
		m.statsMu.Lock()
		m.stats.Messages++
		m.statsMu.Unlock()
		m.observers.OnMessage(ev)

	case EventClosed:
		m.logger.Info("websocket connection closed",
			"handle", id,
			"code", ev.Code,
			"reason", ev.Reason,
			"local", ev.Local,
		)
		m.recorder.HandleClosed(ev.Local)
		m.statsMu.Lock()
		m.stats.Closed++
		m.statsMu.Unlock()
		m.observers.OnClose(ev)

	case EventFailed:
		m.logger.Warn("websocket connection failed",
			"handle", id,
			"kind", ev.ErrKind.String(),
			"error", ev.Err,
		)
		m.recorder.HandleFailed(ev.ErrKind)
		m.statsMu.Lock()
		m.stats.Failures++
		m.statsMu.Unlock()
		m.observers.OnError(ev)
	}
}
