// Package console is the client's single screen: a static label and two
// triggers, read as lines from a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/armolymp/webSocket-python-react-native/internal/connection"
)

// Label is the static text shown above the triggers.
const Label = "WebSocket Example"

// Actions are the two operations the screen can trigger.
type Actions interface {
	Open() *connection.Handle
	Close() bool
}

// Screen renders the triggers and maps input lines to Actions.
type Screen struct {
	actions Actions
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// New creates a Screen.
func New(actions Actions, in io.Reader, out io.Writer, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screen{
		actions: actions,
		in:      in,
		out:     out,
		logger:  logger,
	}
}

// Render writes the label and the two triggers.
func (s *Screen) Render() error {
	_, err := fmt.Fprintf(s.out, "%s\n  [1] Open Connection\n  [2] Close Connection\n  [q] Quit\n> ", Label)
	return err
}

// Run renders the screen and handles input until quit, end of input or ctx
// cancellation.
func (s *Screen) Run(ctx context.Context) error {
	if err := s.Render(); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := s.handle(line); quit {
				return nil
			}
		}
	}
}

// handle runs the trigger for one input line. Returns true on quit.
func (s *Screen) handle(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "1", "o", "open":
		s.logger.Debug("open pressed")
		s.actions.Open()
	case "2", "c", "close":
		s.logger.Debug("close pressed")
		s.actions.Close()
	case "q", "quit", "exit":
		return true
	case "":
	default:
		fmt.Fprintf(s.out, "unknown option %q\n", strings.TrimSpace(line))
		s.Render()
		return false
	}
	fmt.Fprint(s.out, "> ")
	return false
}
