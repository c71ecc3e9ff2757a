//go:build portaudio

package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/eleven-am/interview-coach/internal/capture"
)

// outputFrames is 40ms at 24kHz.
const outputFrames = 960

var (
	initMu   sync.Mutex
	initRefs int
)

func acquire() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
	}
	initRefs++
	return nil
}

func releaseRef() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		return nil
	}
	initRefs--
	if initRefs == 0 {
		return portaudio.Terminate()
	}
	return nil
}

type stream struct {
	s    *portaudio.Stream
	once sync.Once
	err  error
}

func (st *stream) Close() error {
	st.once.Do(func() {
		st.err = errors.Join(st.s.Stop(), st.s.Close(), releaseRef())
	})
	return st.err
}

func start(ctx context.Context, in, out int, rate float64, frames int, cb any) (io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := acquire(); err != nil {
		return nil, err
	}

	s, err := portaudio.OpenDefaultStream(in, out, rate, frames, cb)
	if err != nil {
		releaseRef()
		return nil, err
	}
	if err := s.Start(); err != nil {
		s.Close()
		releaseRef()
		return nil, err
	}
	return &stream{s: s}, nil
}

func (Microphone) Open(ctx context.Context, format capture.Format, onFrame func([]float32)) (io.Closer, error) {
	st, err := start(ctx, format.Channels, 0, float64(format.SampleRate), format.FrameSize, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		if errors.Is(err, portaudio.DeviceUnavailable) || errors.Is(err, portaudio.InvalidDevice) {
			return nil, fmt.Errorf("%w: %v", capture.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	return st, nil
}

func (Speaker) Open(ctx context.Context, sampleRate int, render func([]float32)) (io.Closer, error) {
	st, err := start(ctx, 0, 1, float64(sampleRate), outputFrames, func(out []float32) {
		render(out)
	})
	if err != nil {
		return nil, fmt.Errorf("open speaker: %w", err)
	}
	return st, nil
}
