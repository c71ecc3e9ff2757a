package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sseKeepAliveInterval = 30 * time.Second

// sseConn streams hub events to one HTTP client.
type sseConn struct {
	writer    http.ResponseWriter
	flusher   http.Flusher
	events    <-chan Event
	keepAlive time.Duration
}

func newSSEConn(w http.ResponseWriter, events <-chan Event) (*sseConn, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	return &sseConn{
		writer:    w,
		flusher:   flusher,
		events:    events,
		keepAlive: sseKeepAliveInterval,
	}, nil
}

func (c *sseConn) writeHeaders() {
	h := c.writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.writer.WriteHeader(http.StatusOK)
	c.flusher.Flush()
}

// Run writes events until the subscription closes or ctx is done.
func (c *sseConn) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return nil
			}
			if err := c.writeEvent(ev); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.writeKeepAlive(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *sseConn) writeEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseConn) writeKeepAlive() error {
	if _, err := c.writer.Write([]byte(":keepalive\n\n")); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}
