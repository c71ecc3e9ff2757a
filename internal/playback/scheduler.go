// Package playback schedules received speech gaplessly on an output clock
// and flushes queued audio on barge-in.
package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/interview-coach/internal/audio"
	"github.com/eleven-am/interview-coach/internal/metrics"
)

var ErrClosed = errors.New("playback scheduler closed")

// Voice is one scheduled buffer. Stop is idempotent and never fires the
// buffer's onEnded callback.
type Voice interface {
	Stop()
}

// Clock is the output time domain. Schedule must not call onEnded
// synchronously.
type Clock interface {
	Now() time.Duration
	Schedule(samples []float32, at time.Duration, onEnded func()) Voice
}

type Scheduler struct {
	clock   Clock
	rate    int
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.Mutex
	cursor  time.Duration
	started bool
	closed  bool
	nextID  uint64
	voices  map[uint64]Voice
}

// NewScheduler builds a scheduler emitting samples at rate on clock.
func NewScheduler(clock Clock, rate int, m *metrics.Metrics, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	if rate <= 0 {
		rate = audio.OutputSampleRate
	}
	return &Scheduler{
		clock:   clock,
		rate:    rate,
		metrics: m,
		log:     log.With("component", "playback"),
		voices:  make(map[uint64]Voice),
	}
}

// Enqueue decodes a 16-bit LE PCM payload recorded at sampleRate and
// schedules it right after the previously queued audio. It returns the
// start time on the output clock.
func (s *Scheduler) Enqueue(pcm []byte, sampleRate int) (time.Duration, error) {
	samples := audio.PCM16LEToFloat32(pcm)
	if sampleRate > 0 && sampleRate != s.rate {
		samples = audio.Resample(samples, sampleRate, s.rate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if len(samples) == 0 {
		return s.cursor, nil
	}

	now := s.clock.Now()
	if !s.started {
		s.cursor = now
		s.started = true
	}
	if s.cursor < now {
		s.cursor = now
	}

	start := s.cursor
	s.nextID++
	id := s.nextID
	s.voices[id] = s.clock.Schedule(samples, start, func() { s.release(id) })
	s.cursor += audio.Duration(len(samples), s.rate)
	return start, nil
}

func (s *Scheduler) release(id uint64) {
	s.mu.Lock()
	delete(s.voices, id)
	s.mu.Unlock()
}

// Interrupt stops every outstanding voice and restarts the cursor at the
// clock's current time. It returns the number of voices flushed.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Interruptions.Inc()
	return s.flushLocked()
}

func (s *Scheduler) flushLocked() int {
	n := len(s.voices)
	for id, v := range s.voices {
		v.Stop()
		delete(s.voices, id)
	}
	s.cursor = s.clock.Now()
	s.started = true
	if n > 0 {
		s.log.Debug("playback flushed", "voices", n)
	}
	return n
}

// Close flushes queued audio and rejects further frames. Safe to call twice.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.flushLocked()
	s.closed = true
}

func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Outstanding reports how many voices are scheduled or playing.
func (s *Scheduler) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}
