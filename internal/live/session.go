// Package live is the duplex websocket transport to the Gemini Live
// speech endpoint.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eleven-am/interview-coach/internal/metrics"
)

const (
	maxMessageSize = 16 * 1024 * 1024
	pingPeriod     = 30 * time.Second
)

// Callbacks receive transport events on the session's read goroutine.
// At most one of OnClose and OnError fires, and neither fires after
// Close has been called.
type Callbacks struct {
	OnOpen        func()
	OnAudio       func(pcm []byte, sampleRate int)
	OnInterrupted func()
	OnClose       func(reason string)
	OnError       func(err error)
}

type Session struct {
	ws      *websocket.Conn
	cb      Callbacks
	cfg     Config
	metrics *metrics.Metrics
	log     *slog.Logger

	send      chan []byte
	done      chan struct{}
	closed    atomic.Bool
	finished  atomic.Bool
	opened    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the endpoint and sends the setup message. OnOpen fires
// once the server acknowledges the setup.
func Dial(ctx context.Context, cfg Config, cb Callbacks, m *metrics.Metrics, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	cfg = cfg.withDefaults()

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("x-goog-api-key", cfg.APIKey)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	s := &Session{
		ws:      ws,
		cb:      cb,
		cfg:     cfg,
		metrics: m,
		log:     log.With("component", "live"),
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
	}

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
	if err := ws.WriteJSON(newSetupMessage(cfg)); err != nil {
		ws.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	go s.readLoop()
	go s.writePump()

	s.log.Debug("live session dialed", "model", cfg.Model, "voice", cfg.Voice)
	return s, nil
}

// Send queues one PCM frame. It never blocks and never reports failure:
// a full buffer or a closed session drops the frame.
func (s *Session) Send(pcm []byte) {
	if s == nil || s.closed.Load() {
		return
	}

	data, err := encodeAudio(pcm)
	if err != nil {
		s.metrics.SendsDropped.Inc()
		s.log.Debug("encode audio frame", "error", err)
		return
	}

	select {
	case s.send <- data:
	default:
		s.metrics.SendsDropped.Inc()
		s.log.Debug("send buffer full, dropping frame")
	}
}

// Close shuts the connection down without waiting for the read loop.
// Safe to call more than once and on a nil session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		deadline := time.Now().Add(s.cfg.WriteWait)
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.closeErr = s.ws.Close()
	})
	return s.closeErr
}

func (s *Session) readLoop() {
	defer s.Close()

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("failed to unmarshal server message", "error", err)
			continue
		}

		if s.closed.Load() {
			return
		}
		if !s.dispatch(&msg) {
			return
		}
	}
}

// dispatch delivers one server message and reports whether reading should continue.
func (s *Session) dispatch(msg *serverMessage) bool {
	if msg.Error != nil {
		s.fail(msg.Error)
		return false
	}

	if msg.SetupComplete != nil && s.opened.CompareAndSwap(false, true) {
		if s.cb.OnOpen != nil {
			s.cb.OnOpen()
		}
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted && s.cb.OnInterrupted != nil {
			s.cb.OnInterrupted()
		}
		parts, err := sc.audioParts()
		if err != nil {
			s.log.Warn("dropping malformed audio part", "error", err)
		}
		for _, p := range parts {
			if s.cb.OnAudio != nil {
				s.cb.OnAudio(p.pcm, p.sampleRate)
			}
		}
		if sc.TurnComplete {
			s.log.Debug("model turn complete")
		}
	}

	if msg.GoAway != nil {
		s.log.Info("server going away", "time_left", msg.GoAway.TimeLeft)
	}
	return true
}

func (s *Session) handleReadError(err error) {
	if s.closed.Load() {
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && isGracefulClose(closeErr.Code) {
		if s.finished.CompareAndSwap(false, true) && s.cb.OnClose != nil {
			reason := closeErr.Text
			if reason == "" {
				reason = fmt.Sprintf("closed with code %d", closeErr.Code)
			}
			s.cb.OnClose(reason)
		}
		return
	}
	s.fail(err)
}

func (s *Session) fail(err error) {
	if s.closed.Load() || !s.finished.CompareAndSwap(false, true) {
		return
	}
	s.log.Warn("live session error", "error", err)
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}

func isGracefulClose(code int) bool {
	return code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.metrics.SendsDropped.Inc()
				s.log.Debug("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteWait)
			if err := s.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.log.Debug("websocket ping error", "error", err)
				return
			}
		}
	}
}
