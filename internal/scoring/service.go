package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eleven-am/interview-coach/internal/metrics"
	"github.com/eleven-am/interview-coach/internal/shared"
)

var ErrEmptyText = errors.New("scoring: resume text is empty")

// placeholder fills lists the model returned short.
const placeholder = "No further feedback."

type Service struct {
	store     *Store
	cache     *Cache
	generator Generator
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewService(store *Store, cache *Cache, generator Generator, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Service{
		store:     store,
		cache:     cache,
		generator: generator,
		metrics:   m,
		log:       log.With("component", "scoring"),
	}
}

// Score assesses text and stores the result as a new Resume. Reports are
// cached by text hash; a cache failure falls through to the model.
func (s *Service) Score(ctx context.Context, text string) (*Resume, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.observe("invalid")
		return nil, ErrEmptyText
	}

	hash := hashText(text)
	report, outcome := s.cached(ctx, hash), "cached"
	if report == nil {
		generated, err := s.generator.Generate(ctx, text)
		if err != nil {
			s.observe("error")
			return nil, err
		}
		normalized := Normalize(*generated)
		report, outcome = &normalized, "generated"
	}

	resume := &Resume{TextHash: hash, Text: text}
	resume.apply(*report)
	if err := s.store.Create(ctx, resume); err != nil {
		s.observe("error")
		return nil, fmt.Errorf("store resume: %w", err)
	}

	if outcome == "generated" && s.cache != nil {
		if err := s.cache.Set(ctx, hash, *report); err != nil {
			s.log.Warn("failed to cache score", "error", err, "resume_id", resume.ID)
		}
	}

	s.observe(outcome)
	s.log.Info("resume scored", "resume_id", resume.ID, "score", resume.Score, "outcome", outcome)
	return resume, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Resume, error) {
	return s.store.GetByID(ctx, id)
}

// ResumeText returns the stored text of a resume for prompt building.
func (s *Service) ResumeText(ctx context.Context, id string) (string, error) {
	resume, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return resume.Text, nil
}

func (s *Service) cached(ctx context.Context, hash string) *Report {
	if s.cache == nil {
		return nil
	}
	report, err := s.cache.Get(ctx, hash)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.log.Warn("score cache lookup failed", "error", err)
		}
		return nil
	}
	return report
}

func (s *Service) observe(outcome string) {
	s.metrics.ScoreRequests.WithLabelValues(outcome).Inc()
}

// Normalize clamps the score to 0..100 and forces every list to exactly
// ListSize non-blank entries.
func Normalize(r Report) Report {
	r.Score = max(0, min(100, r.Score))
	r.Summary = strings.TrimSpace(r.Summary)
	r.Strengths = fixList(r.Strengths)
	r.Weaknesses = fixList(r.Weaknesses)
	r.Improvements = fixList(r.Improvements)
	return r
}

func fixList(items []string) []string {
	out := make([]string, 0, ListSize)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == ListSize {
			return out
		}
	}
	for len(out) < ListSize {
		out = append(out, placeholder)
	}
	return out
}
