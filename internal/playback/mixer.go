package playback

import (
	"sync"
	"time"

	"github.com/eleven-am/interview-coach/internal/audio"
)

// Mixer is a sample-accurate output clock. Time advances only as the
// output device pulls samples through Render.
type Mixer struct {
	rate int

	mu     sync.Mutex
	pos    int64
	voices []*mixVoice
}

type mixVoice struct {
	mixer   *Mixer
	samples []float32
	start   int64
	onEnded func()
	done    bool
}

func NewMixer(rate int) *Mixer {
	if rate <= 0 {
		rate = audio.OutputSampleRate
	}
	return &Mixer{rate: rate}
}

func (m *Mixer) Rate() int {
	return m.rate
}

// Now is the play position of the next sample Render will produce.
func (m *Mixer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return audio.Duration(int(m.pos), m.rate)
}

// Schedule queues samples to start at the given clock time. A start time
// already in the past plays from the current position.
func (m *Mixer) Schedule(samples []float32, at time.Duration, onEnded func()) Voice {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := audio.Samples(at, m.rate)
	if start < m.pos {
		start = m.pos
	}
	v := &mixVoice{
		mixer:   m,
		samples: samples,
		start:   start,
		onEnded: onEnded,
	}
	m.voices = append(m.voices, v)
	return v
}

// Render fills out with the mix of every voice overlapping the next
// len(out) samples and advances the clock. onEnded callbacks run after
// the mixer lock is released.
func (m *Mixer) Render(out []float32) {
	var ended []func()

	m.mu.Lock()
	clear(out)
	from := m.pos
	to := from + int64(len(out))

	kept := m.voices[:0]
	for _, v := range m.voices {
		end := v.start + int64(len(v.samples))
		lo, hi := max(v.start, from), min(end, to)
		for i := lo; i < hi; i++ {
			out[i-from] += v.samples[i-v.start]
		}
		if end <= to {
			v.done = true
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
			continue
		}
		kept = append(kept, v)
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	m.pos = to

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	m.mu.Unlock()

	for _, fn := range ended {
		fn()
	}
}

// Active reports voices still scheduled or playing.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

func (v *mixVoice) Stop() {
	m := v.mixer
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.done {
		return
	}
	v.done = true
	for i, other := range m.voices {
		if other == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			break
		}
	}
}
