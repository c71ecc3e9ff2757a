package capture

import (
	"math"
	"sync/atomic"

	"github.com/eleven-am/interview-coach/internal/audio"
)

const (
	// LevelScale maps frame RMS to the displayed level.
	LevelScale = 4.0
	// LevelDecay is the per-frame release factor applied in silence.
	LevelDecay = 0.9
	// LevelCap is the maximum displayed level.
	LevelCap = 1.0
)

// LevelMeter tracks a smoothed input level with instant attack and
// exponential release: level = min(cap, max(rms*scale, previous*decay)).
type LevelMeter struct {
	bits atomic.Uint64
}

// Update folds one frame into the meter and returns the new level.
func (m *LevelMeter) Update(samples []float32) float64 {
	target := math.Min(audio.RMS(samples)*LevelScale, LevelCap)
	level := math.Max(target, m.Level()*LevelDecay)
	m.bits.Store(math.Float64bits(level))
	return level
}

func (m *LevelMeter) Level() float64 {
	return math.Float64frombits(m.bits.Load())
}

func (m *LevelMeter) Reset() {
	m.bits.Store(0)
}
