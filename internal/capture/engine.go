// Package capture turns microphone callbacks into metered, gated 16-bit PCM
// frames for the live transport.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eleven-am/interview-coach/internal/audio"
	"github.com/eleven-am/interview-coach/internal/metrics"
)

// FrameSize is the number of samples per captured frame (~256ms at 16kHz).
const FrameSize = 4096

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoDevice         = errors.New("no capture device available")
	ErrNoSink           = errors.New("capture sink is required")
)

type Format struct {
	SampleRate int
	Channels   int
	FrameSize  int
}

func DefaultFormat() Format {
	return Format{
		SampleRate: audio.InputSampleRate,
		Channels:   1,
		FrameSize:  FrameSize,
	}
}

// Device opens a platform capture stream. onFrame runs on the device's
// callback thread and must not retain samples after returning.
type Device interface {
	Open(ctx context.Context, format Format, onFrame func(samples []float32)) (io.Closer, error)
}

type Config struct {
	Device  Device
	Format  Format
	Gate    *MuteGate
	Sink    func(pcm []byte)
	OnLevel func(level float64)
	Metrics *metrics.Metrics
}

type Engine struct {
	gate    *MuteGate
	meter   LevelMeter
	sink    func(pcm []byte)
	onLevel func(level float64)
	metrics *metrics.Metrics
	log     *slog.Logger

	stream    io.Closer
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open acquires the capture device and starts delivering frames. It may
// suspend while the platform asks for microphone permission.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Device == nil {
		return nil, ErrNoDevice
	}
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	if cfg.Format == (Format{}) {
		cfg.Format = DefaultFormat()
	}
	if cfg.Gate == nil {
		cfg.Gate = &MuteGate{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Discard()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := &Engine{
		gate:    cfg.Gate,
		sink:    cfg.Sink,
		onLevel: cfg.OnLevel,
		metrics: cfg.Metrics,
		log:     log.With("component", "capture"),
	}

	stream, err := cfg.Device.Open(ctx, cfg.Format, e.process)
	if err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}
	e.stream = stream

	e.log.Debug("capture started",
		"sample_rate", cfg.Format.SampleRate,
		"frame_size", cfg.Format.FrameSize)
	return e, nil
}

func (e *Engine) process(samples []float32) {
	if e.closed.Load() {
		return
	}

	level := e.meter.Update(samples)
	if e.onLevel != nil {
		e.onLevel(level)
	}

	if e.gate.Muted() {
		e.metrics.FramesMuted.Inc()
		return
	}

	e.sink(audio.Float32ToPCM16LE(samples))
	e.metrics.FramesSent.Inc()
}

func (e *Engine) Level() float64 {
	return e.meter.Level()
}

// Close stops the device. Safe to call more than once and on a nil engine.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.stream != nil {
			e.closeErr = e.stream.Close()
		}
		e.log.Debug("capture stopped")
	})
	return e.closeErr
}
