package interview

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/eleven-am/interview-coach/internal/capture"
	"github.com/eleven-am/interview-coach/internal/playback"
)

// attempt holds the resources acquired by one connect, tagged with its
// epoch. Resources are adopted as setup acquires them; once released, any
// late adoption closes the resource immediately.
type attempt struct {
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc

	connected atomic.Bool
	errored   atomic.Bool
	closed    atomic.Bool

	capture   atomic.Pointer[capture.Engine]
	player    atomic.Pointer[playback.Player]
	transport atomic.Pointer[Transport]
}

func newAttempt(parent context.Context, epoch uint64) *attempt {
	ctx, cancel := context.WithCancel(parent)
	return &attempt{epoch: epoch, ctx: ctx, cancel: cancel}
}

// send is the capture sink. It reads the connection flags at call time.
func (a *attempt) send(pcm []byte) {
	if !a.connected.Load() || a.closed.Load() {
		return
	}
	if t := a.transport.Load(); t != nil {
		(*t).Send(pcm)
	}
}

func (a *attempt) adoptCapture(e *capture.Engine) (bool, error) {
	a.capture.Store(e)
	if a.closed.Load() {
		if e := a.capture.Swap(nil); e != nil {
			return false, e.Close()
		}
		return false, nil
	}
	return true, nil
}

func (a *attempt) adoptPlayer(p *playback.Player) (bool, error) {
	a.player.Store(p)
	if a.closed.Load() {
		if p := a.player.Swap(nil); p != nil {
			return false, p.Close()
		}
		return false, nil
	}
	return true, nil
}

func (a *attempt) adoptTransport(t Transport) (bool, error) {
	a.transport.Store(&t)
	if a.closed.Load() {
		if t := a.transport.Swap(nil); t != nil {
			return false, (*t).Close()
		}
		return false, nil
	}
	return true, nil
}

func (a *attempt) playback() *playback.Player {
	return a.player.Load()
}

// release closes every adopted resource exactly once. Capture stops first
// so no frame reaches a closing transport. A failure closing one resource
// does not prevent closing the others.
func (a *attempt) release() error {
	a.closed.Store(true)
	a.connected.Store(false)
	a.cancel()

	var errs []error
	if e := a.capture.Swap(nil); e != nil {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close capture: %w", err))
		}
	}
	if t := a.transport.Swap(nil); t != nil {
		if err := (*t).Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
	}
	if p := a.player.Swap(nil); p != nil {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close playback: %w", err))
		}
	}
	return errors.Join(errs...)
}

// handles reports how many resources the attempt still owns.
func (a *attempt) handles() int {
	n := 0
	if a.capture.Load() != nil {
		n++
	}
	if a.transport.Load() != nil {
		n++
	}
	if a.player.Load() != nil {
		n++
	}
	return n
}
