// Package device binds the capture and playback engines to the host's
// default audio devices.
package device

import (
	"errors"

	"github.com/eleven-am/interview-coach/internal/capture"
	"github.com/eleven-am/interview-coach/internal/playback"
)

// ErrUnsupported is returned when the binary was built without audio I/O.
var ErrUnsupported = errors.New("audio devices unavailable: build with -tags portaudio")

// Microphone opens the default input device.
type Microphone struct{}

// Speaker opens the default output device.
type Speaker struct{}

var (
	_ capture.Device  = Microphone{}
	_ playback.Device = Speaker{}
)
