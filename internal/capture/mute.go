package capture

import "sync/atomic"

// MuteGate decides, per captured frame, whether the frame may leave the
// process. It is read inside the capture callback, so a toggle is visible to
// the very next frame.
type MuteGate struct {
	muted atomic.Bool
}

func (g *MuteGate) SetMuted(muted bool) {
	g.muted.Store(muted)
}

func (g *MuteGate) Muted() bool {
	return g.muted.Load()
}
