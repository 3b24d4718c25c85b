package livefeed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
)

const (
	EventConnected    = "connected"
	EventHeartbeat    = "heartbeat"
	EventNotification = "notification"
	EventDisconnected = "disconnected"
)

// EventWriter emits one named event with a JSON payload to the client.
type EventWriter interface {
	WriteEvent(name string, data any) error
}

// SSEWriter writes Server-Sent Events and flushes after each one so the
// client sees it immediately.
type SSEWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewSSEWriter(w *bufio.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) WriteEvent(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return s.w.Flush()
}
