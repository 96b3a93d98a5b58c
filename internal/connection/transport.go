package connection

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn a Handle uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens transport connections.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, error)
}

// websocketDialer adapts websocket.Dialer to Dialer.
type websocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer returns a Dialer backed by gorilla/websocket.
func NewWebsocketDialer(handshakeTimeout time.Duration) Dialer {
	return &websocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// DialContext performs the opening handshake.
func (d *websocketDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// ClassifyError maps a dial or read error to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorUnknown
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorConnectionRefused
	}

	var (
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		alertErr   tls.AlertError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &alertErr),
		errors.As(err, &authErr),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return ErrorTLSFailure
	}

	if errors.Is(err, websocket.ErrBadHandshake) {
		return ErrorHandshakeRejected
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.CloseAbnormalClosure {
			return ErrorAbnormalClosure
		}
		return ErrorUnknown
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET) {
		return ErrorAbnormalClosure
	}

	return ErrorUnknown
}
