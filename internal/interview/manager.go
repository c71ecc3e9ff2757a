package interview

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/interview-coach/internal/live"
	"github.com/eleven-am/interview-coach/internal/metrics"
)

// Session is one interview held by the manager.
type Session struct {
	ID         string
	Difficulty live.Difficulty
	ResumeID   string
	CreatedAt  time.Time
	Controller *Controller
	Events     *Hub

	request Request
}

type ManagerConfig struct {
	// Controller is the template each session's controller is built from.
	Controller Config
	Metrics    *metrics.Metrics
	Log        *slog.Logger
}

type Manager struct {
	template Config
	metrics  *metrics.Metrics
	sessions map[string]*Session
	mu       sync.RWMutex
	log      *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = cfg.Controller.Metrics
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Discard()
	}
	cfg.Controller.Metrics = cfg.Metrics

	return &Manager{
		template: cfg.Controller,
		metrics:  cfg.Metrics,
		sessions: make(map[string]*Session),
		log:      cfg.Log.With("component", "interview_manager"),
	}
}

// Create registers a new interview without connecting it.
func (m *Manager) Create(req Request, resumeID string) *Session {
	sess := &Session{
		ID:         uuid.NewString(),
		Difficulty: req.Difficulty,
		ResumeID:   resumeID,
		CreatedAt:  time.Now().UTC(),
		Events:     NewHub(),
		request:    req,
	}

	cfg := m.template
	cfg.OnStatus = func(s Status) {
		sess.Events.Publish(Event{Type: EventStatus, Status: &s})
	}
	cfg.OnLevel = func(level float64) {
		sess.Events.Publish(Event{Type: EventLevel, Level: level})
	}
	sess.Controller = NewController(cfg, m.log.With("session_id", sess.ID))

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	m.metrics.ActiveInterviews.Inc()

	m.log.Info("interview created", "session_id", sess.ID, "difficulty", req.Difficulty)
	return sess
}

// Start connects the session in the background.
func (m *Manager) Start(sess *Session) {
	go func() {
		if err := sess.Controller.Connect(context.Background(), sess.request); err != nil {
			m.log.Warn("interview connect failed", "session_id", sess.ID, "error", err)
		}
	}()
}

// Retry runs a manual retry in the background once the state allows it.
func (m *Manager) Retry(sess *Session) error {
	if sess.Controller.Status().State != StateError {
		return ErrNotRetryable
	}
	go func() {
		if err := sess.Controller.Retry(context.Background()); err != nil {
			m.log.Warn("interview retry failed", "session_id", sess.ID, "error", err)
		}
	}()
	return nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Remove ends the interview and forgets it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	m.end(sess)
	m.log.Info("interview removed", "session_id", id)
	return nil
}

func (m *Manager) end(sess *Session) {
	sess.Controller.End()
	sess.Events.Close()
	m.metrics.ActiveInterviews.Dec()
}

// List returns sessions oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) CountByState() map[State]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[State]int)
	for _, s := range m.sessions {
		counts[s.Controller.Status().State]++
	}
	return counts
}

// CredentialConfigured reports whether sessions can reach the endpoint.
func (m *Manager) CredentialConfigured() bool {
	return m.template.Live.APIKey != ""
}

// Close ends every interview.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.end(s)
	}
	return nil
}
