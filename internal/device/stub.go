//go:build !portaudio

package device

import (
	"context"
	"io"

	"github.com/eleven-am/interview-coach/internal/capture"
)

func (Microphone) Open(context.Context, capture.Format, func([]float32)) (io.Closer, error) {
	return nil, ErrUnsupported
}

func (Speaker) Open(context.Context, int, func([]float32)) (io.Closer, error) {
	return nil, ErrUnsupported
}
