package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/eleven-am/interview-coach/internal/metrics"
)

var ErrNoDevice = errors.New("no playback device available")

// Device opens a platform output stream that pulls mono samples at
// sampleRate by calling render from its callback thread.
type Device interface {
	Open(ctx context.Context, sampleRate int, render func(out []float32)) (io.Closer, error)
}

// Player is the audio graph for one connection: a mixer clock driven by
// the output device and the scheduler feeding it.
type Player struct {
	*Scheduler
	mixer *Mixer

	stream    io.Closer
	closeOnce sync.Once
	closeErr  error
	log       *slog.Logger
}

// OpenPlayer starts the output device at rate. It may suspend while the
// platform activates its audio context.
func OpenPlayer(ctx context.Context, dev Device, rate int, m *metrics.Metrics, log *slog.Logger) (*Player, error) {
	if log == nil {
		log = slog.Default()
	}
	if dev == nil {
		return nil, ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mixer := NewMixer(rate)
	stream, err := dev.Open(ctx, mixer.Rate(), mixer.Render)
	if err != nil {
		return nil, fmt.Errorf("open playback device: %w", err)
	}

	return &Player{
		Scheduler: NewScheduler(mixer, mixer.Rate(), m, log),
		mixer:     mixer,
		stream:    stream,
		log:       log.With("component", "player"),
	}, nil
}

func (p *Player) Mixer() *Mixer {
	return p.mixer
}

// Close flushes queued audio and stops the output device. Safe to call
// more than once and on a nil player.
func (p *Player) Close() error {
	if p == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		p.Scheduler.Close()
		if p.stream != nil {
			p.closeErr = p.stream.Close()
		}
		p.log.Debug("playback stopped")
	})
	return p.closeErr
}
