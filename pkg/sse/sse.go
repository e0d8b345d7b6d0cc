// Package sse writes Server-Sent Events, the dashboard's fallback for
// clients that cannot hold a websocket.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnsupported = errors.New("sse: response writer cannot flush")

// Event is one message on the stream. Data is JSON encoded.
type Event struct {
	Name string
	ID   string
	Data interface{}
}

type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// New sets the event-stream headers. It fails when w cannot flush.
func New(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher}, nil
}

func (s *Stream) Send(e Event) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if e.ID != "" {
		fmt.Fprintf(s.w, "id: %s\n", e.ID)
	}
	if e.Name != "" {
		fmt.Fprintf(s.w, "event: %s\n", e.Name)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keepalive line that clients ignore.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Pump forwards events until ctx is done or events is closed, writing a
// keepalive comment whenever the stream has been idle for keepalive.
func (s *Stream) Pump(ctx context.Context, events <-chan Event, keepalive time.Duration) error {
	t := time.NewTicker(keepalive)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Send(e); err != nil {
				return err
			}
			t.Reset(keepalive)
		case <-t.C:
			if err := s.Comment("keepalive"); err != nil {
				return err
			}
		}
	}
}
