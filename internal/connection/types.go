package connection

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotConnected is returned by Send when the handle is not open.
var ErrNotConnected = errors.New("not connected")

// Status is the lifecycle state of a Handle.
type Status int

const (
	// StatusCreated means the handle exists but the transport has not opened.
	StatusCreated Status = iota
	// StatusOpen means the transport reported the connection open.
	StatusOpen
	// StatusClosed means the transport reported the connection closed.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind identifies a transport event.
type EventKind int

const (
	EventOpened EventKind = iota + 1
	EventMessage
	EventClosed
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind classifies transport failures.
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorConnectionRefused
	ErrorTLSFailure
	ErrorHandshakeRejected
	ErrorAbnormalClosure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionRefused:
		return "connection_refused"
	case ErrorTLSFailure:
		return "tls_failure"
	case ErrorHandshakeRejected:
		return "handshake_rejected"
	case ErrorAbnormalClosure:
		return "abnormal_closure"
	default:
		return "unknown"
	}
}

// Event is a single transport event for one Handle.
type Event struct {
	Kind   EventKind
	Handle *Handle
	At     time.Time // Local time the transport reported the event

	// EventMessage
	Payload []byte

	// EventClosed
	Code   int    // WebSocket close code (1006 when no close frame was received)
	Reason string // Close reason text
	Local  bool   // True if Close was requested on the handle

	// EventFailed
	Err     error
	ErrKind ErrorKind
}

// HandleID returns the ID of the event's handle, or uuid.Nil.
func (e Event) HandleID() uuid.UUID {
	if e.Handle == nil {
		return uuid.Nil
	}
	return e.Handle.ID()
}

// ManagerConfig configures the Manager.
type ManagerConfig struct {
	Endpoint         string        // WebSocket URL (ws:// or wss://)
	Greeting         string        // Text sent once a handle opens; empty sends nothing
	HandshakeTimeout time.Duration // Opening handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends
	EventBuffer      int           // Initial event queue capacity
	CloseOnReopen    bool          // Terminate the held handle before Open replaces it
}

// DefaultManagerConfig returns the defaults used by the client binary.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Endpoint:         "wss://84a6-2402-d000-a500-2774-4d77-e420-d813-9eb4.ngrok-free.app",
		Greeting:         "Hello, server!",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		EventBuffer:      64,
	}
}

// ManagerStats provides counters for the manager.
type ManagerStats struct {
	Opened    int64 // Handles that reached StatusOpen
	Closed    int64 // Closed events observed
	Messages  int64 // Messages received across all handles
	Failures  int64 // Failed events observed
	Abandoned int64 // Handles replaced by Open without being closed
	Holding   bool  // Whether a handle is currently held
}
