package pushserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config configures the Server.
type Config struct {
	Addr     string
	Path     string
	Interval time.Duration
}

// DefaultConfig returns the defaults used by wsserver.
func DefaultConfig() Config {
	return Config{
		Addr:     "0.0.0.0:8080",
		Path:     "/",
		Interval: 5 * time.Second,
	}
}

// Stats holds server counters.
type Stats struct {
	Active   int64 // Connections currently being served
	Accepted int64 // Connections upgraded since start
	Sent     int64 // Messages pushed across all connections
}

// Server upgrades HTTP requests and pushes numbered messages.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	active   atomic.Int64
	accepted atomic.Int64
	sent     atomic.Int64

	wg sync.WaitGroup
}

// New creates a Server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	return Stats{
		Active:   s.active.Load(),
		Accepted: s.accepted.Load(),
		Sent:     s.sent.Load(),
	}
}

// Handler returns the HTTP handler serving the WebSocket path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	return mux
}

// ListenAndServe listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes open
// WebSocket connections with 1001 (going away) and waits for them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket server started", "url", fmt.Sprintf("ws://%s%s", ln.Addr(), s.cfg.Path))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", "error", err)
	}

	// Hijacked connections are not tracked by Shutdown.
	s.wg.Wait()
	s.logger.Info("websocket server stopped")
	return nil
}

// serveWS upgrades the request and pushes messages until the peer leaves
// or the request context ends.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	// Counted before the hijack so Serve cannot miss it.
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	s.accepted.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	remote := conn.RemoteAddr().String()
	s.logger.Info("new connection", "remote", remote)

	// The read side processes control frames and notices the peer leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.logger.Debug("received", "remote", remote, "payload", string(data))
		}
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for count := 0; ; count++ {
		msg := fmt.Sprintf("Message %d", count)
		conn.SetWriteDeadline(time.Now().Add(s.cfg.Interval + time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			s.logger.Info("connection closed", "remote", remote)
			return
		}
		s.sent.Add(1)
		s.logger.Info("sent", "remote", remote, "message", msg)

		select {
		case <-ticker.C:
		case <-gone:
			s.logger.Info("connection closed", "remote", remote)
			return
		case <-r.Context().Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second),
			)
			s.logger.Info("connection closed", "remote", remote, "reason", "server shutdown")
			return
		}
	}
}
