// Package interview orchestrates one voice interview: it owns the
// connection epoch, the retry policy and teardown of the capture engine,
// the playback graph and the live transport.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/interview-coach/internal/audio"
	"github.com/eleven-am/interview-coach/internal/capture"
	"github.com/eleven-am/interview-coach/internal/live"
	"github.com/eleven-am/interview-coach/internal/metrics"
	"github.com/eleven-am/interview-coach/internal/playback"
)

const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
)

// Transport is one live connection to the speech endpoint.
type Transport interface {
	Send(pcm []byte)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, cfg live.Config, cb live.Callbacks) (Transport, error)
}

// LiveDialer dials the Gemini Live endpoint.
type LiveDialer struct {
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

func (d LiveDialer) Dial(ctx context.Context, cfg live.Config, cb live.Callbacks) (Transport, error) {
	s, err := live.Dial(ctx, cfg, cb, d.Metrics, d.Log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// DefaultAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func DefaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Config struct {
	Live           live.Config
	MaxRetries     int
	RetryBaseDelay time.Duration

	Microphone capture.Device
	Speaker    playback.Device
	Dialer     Dialer
	AfterFunc  AfterFunc
	Metrics    *metrics.Metrics

	OnStatus func(Status)
	OnLevel  func(level float64)
}

type retryTask struct {
	epoch uint64

	mu        sync.Mutex
	timer     Timer
	cancelled bool
}

func (t *retryTask) arm(timer Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		timer.Stop()
		return
	}
	t.timer = timer
}

func (t *retryTask) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Controller is the connection state machine for one interview. Every
// asynchronous effect is tagged with the epoch that started it and is
// discarded once that epoch is no longer current.
type Controller struct {
	cfg     Config
	gate    *capture.MuteGate
	metrics *metrics.Metrics
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	epoch   atomic.Uint64
	closed  atomic.Bool
	retries atomic.Int64
	status  atomic.Pointer[Status]
	current atomic.Pointer[attempt]
	retry   atomic.Pointer[retryTask]
	request atomic.Pointer[Request]
}

func NewController(cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = DefaultAfterFunc
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Discard()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = LiveDialer{Metrics: cfg.Metrics, Log: log}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:     cfg,
		gate:    &capture.MuteGate{},
		metrics: cfg.Metrics,
		log:     log.With("component", "interview"),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.status.Store(&Status{State: StateIdle, UpdatedAt: time.Now()})
	return c
}

// Connect starts a new epoch and drives setup: credential check,
// microphone, speaker, then the remote handshake. It returns once the
// handshake has been sent; the Connected transition follows asynchronously.
// Transport failures are retried automatically and still reported here.
func (c *Controller) Connect(ctx context.Context, req Request) error {
	return c.connect(ctx, req, true)
}

// Retry reconnects with the last request after an error, starting the
// retry budget over.
func (c *Controller) Retry(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	req := c.request.Load()
	if req == nil || c.Status().State != StateError {
		return ErrNotRetryable
	}
	return c.connect(ctx, *req, true)
}

// End tears everything down and moves to Closed. Resources owned by the
// current attempt are released before End returns; a setup still
// suspended in another goroutine releases what it acquires as it resumes.
func (c *Controller) End() {
	c.closed.Store(true)
	epoch := c.epoch.Add(1)
	c.cancelRetry()
	c.cancel()

	if a := c.current.Swap(nil); a != nil {
		c.releaseAttempt(a)
	}

	next := &Status{Epoch: epoch, State: StateClosed, UpdatedAt: time.Now()}
	if prev := c.status.Swap(next); prev.State != StateClosed {
		c.published(next)
		c.log.Info("interview closed", "epoch", epoch)
	}
}

func (c *Controller) SetMuted(muted bool) {
	c.gate.SetMuted(muted)
}

func (c *Controller) Muted() bool {
	return c.gate.Muted()
}

func (c *Controller) Status() Status {
	return *c.status.Load()
}

func (c *Controller) Epoch() uint64 {
	return c.epoch.Load()
}

// LiveHandles reports resources held by the current attempt.
func (c *Controller) LiveHandles() int {
	if a := c.current.Load(); a != nil {
		return a.handles()
	}
	return 0
}

func (c *Controller) isCurrent(epoch uint64) bool {
	return c.epoch.Load() == epoch && !c.closed.Load()
}

func (c *Controller) connect(ctx context.Context, req Request, reset bool) error {
	epoch := c.epoch.Add(1)
	if c.closed.Load() {
		return ErrClosed
	}
	c.request.Store(&req)
	if reset {
		c.retries.Store(0)
	}
	c.cancelRetry()
	c.retire(epoch)
	c.metrics.ConnectAttempts.Inc()

	log := c.log.With("epoch", epoch)

	if c.cfg.Live.APIKey == "" {
		c.setStatus(epoch, Status{
			State:     StateError,
			ErrorKind: ErrorMissingCredential,
			Message:   ErrorMissingCredential.Message(),
		})
		return ErrMissingCredential
	}

	if !c.setStatus(epoch, Status{State: StateConnecting, Attempt: int(c.retries.Load())}) {
		return ErrSuperseded
	}

	a := newAttempt(c.ctx, epoch)
	if !c.install(a) {
		c.releaseAttempt(a)
		return ErrSuperseded
	}

	setupCtx, cancelSetup := context.WithCancel(ctx)
	defer cancelSetup()
	stop := context.AfterFunc(a.ctx, cancelSetup)
	defer stop()

	engine, err := capture.Open(setupCtx, capture.Config{
		Device:  c.cfg.Microphone,
		Gate:    c.gate,
		Sink:    a.send,
		OnLevel: c.levelFunc(epoch),
		Metrics: c.metrics,
	}, log)
	if err != nil {
		return c.setupFailed(a, err)
	}
	if !c.adopt(a, func() (bool, error) { return a.adoptCapture(engine) }) {
		return ErrSuperseded
	}

	player, err := playback.OpenPlayer(setupCtx, c.cfg.Speaker, audio.OutputSampleRate, c.metrics, log)
	if err != nil {
		return c.setupFailed(a, err)
	}
	if !c.adopt(a, func() (bool, error) { return a.adoptPlayer(player) }) {
		return ErrSuperseded
	}

	cfg := c.cfg.Live
	cfg.SystemPrompt = live.BuildSystemPrompt(req.Difficulty, req.Resume)
	transport, err := c.cfg.Dialer.Dial(setupCtx, cfg, c.callbacks(a))
	if err != nil {
		if !c.isCurrent(epoch) {
			c.releaseAttempt(a)
			return ErrSuperseded
		}
		c.transportFailed(a, err)
		return fmt.Errorf("dial: %w", err)
	}
	if !c.adopt(a, func() (bool, error) { return a.adoptTransport(transport) }) {
		return ErrSuperseded
	}

	log.Debug("interview setup complete", "difficulty", req.Difficulty)
	return nil
}

// adopt hands a freshly acquired resource to the attempt and re-validates
// the epoch. A stale attempt is released in full.
func (c *Controller) adopt(a *attempt, fn func() (bool, error)) bool {
	ok, err := fn()
	if err != nil {
		c.teardownError(a.epoch, err)
	}
	if ok && c.isCurrent(a.epoch) {
		return true
	}
	c.current.CompareAndSwap(a, nil)
	c.releaseAttempt(a)
	return false
}

// retire releases an attempt older than epoch.
func (c *Controller) retire(epoch uint64) {
	for {
		prev := c.current.Load()
		if prev == nil || prev.epoch >= epoch {
			return
		}
		if c.current.CompareAndSwap(prev, nil) {
			c.releaseAttempt(prev)
			return
		}
	}
}

// install makes a the current attempt unless a newer one is already
// installed, then re-checks the epoch in case it was superseded meanwhile.
func (c *Controller) install(a *attempt) bool {
	for {
		prev := c.current.Load()
		if prev != nil && prev.epoch > a.epoch {
			return false
		}
		if c.current.CompareAndSwap(prev, a) {
			if prev != nil {
				c.releaseAttempt(prev)
			}
			break
		}
	}
	if !c.isCurrent(a.epoch) {
		c.current.CompareAndSwap(a, nil)
		return false
	}
	return true
}

func (c *Controller) releaseAttempt(a *attempt) {
	if err := a.release(); err != nil {
		c.teardownError(a.epoch, err)
	}
}

func (c *Controller) teardownError(epoch uint64, err error) {
	c.metrics.TeardownErrors.Inc()
	c.log.Warn("failed to release interview resource", "epoch", epoch, "error", err)
}

func (c *Controller) setupFailed(a *attempt, err error) error {
	c.current.CompareAndSwap(a, nil)
	c.releaseAttempt(a)

	kind := setupErrorKind(err)
	if !c.setStatus(a.epoch, Status{
		State:     StateError,
		ErrorKind: kind,
		Message:   kind.Message(),
		CanRetry:  true,
	}) {
		return ErrSuperseded
	}
	c.log.Warn("interview setup failed", "epoch", a.epoch, "kind", kind, "error", err)
	return err
}

func (c *Controller) levelFunc(epoch uint64) func(float64) {
	return func(level float64) {
		if c.cfg.OnLevel != nil && c.isCurrent(epoch) {
			c.cfg.OnLevel(level)
		}
	}
}

func (c *Controller) callbacks(a *attempt) live.Callbacks {
	return live.Callbacks{
		OnOpen: func() { c.handleOpen(a) },
		OnAudio: func(pcm []byte, rate int) {
			if !c.isCurrent(a.epoch) {
				return
			}
			if p := a.playback(); p != nil {
				if _, err := p.Enqueue(pcm, rate); err != nil {
					c.log.Debug("dropping server audio", "epoch", a.epoch, "error", err)
				}
			}
		},
		OnInterrupted: func() {
			if !c.isCurrent(a.epoch) {
				return
			}
			if p := a.playback(); p != nil {
				p.Interrupt()
			}
		},
		OnClose: func(reason string) { c.handleClose(a, reason) },
		OnError: func(err error) { c.transportFailed(a, err) },
	}
}

func (c *Controller) handleOpen(a *attempt) {
	if !c.isCurrent(a.epoch) || a.errored.Load() {
		return
	}
	a.connected.Store(true)
	c.retries.Store(0)
	if c.setStatus(a.epoch, Status{State: StateConnected}) {
		c.log.Info("interview connected", "epoch", a.epoch)
	}
}

func (c *Controller) handleClose(a *attempt, reason string) {
	if !c.isCurrent(a.epoch) || a.errored.Load() {
		return
	}
	c.current.CompareAndSwap(a, nil)
	c.releaseAttempt(a)

	if c.setStatus(a.epoch, Status{
		State:     StateEnded,
		ErrorKind: ErrorGracefulClose,
		Message:   reason,
	}) {
		c.log.Info("interview ended by remote", "epoch", a.epoch, "reason", reason)
	}
}

// transportFailed handles a transport error for a: the attempt is
// released and, while the retry budget lasts, a reconnect is scheduled
// after attempt × base delay.
func (c *Controller) transportFailed(a *attempt, err error) {
	if !c.isCurrent(a.epoch) || !a.errored.CompareAndSwap(false, true) {
		return
	}
	c.current.CompareAndSwap(a, nil)
	c.releaseAttempt(a)

	kind := transportErrorKind(err)
	c.metrics.TransportErrors.WithLabelValues(string(kind)).Inc()
	log := c.log.With("epoch", a.epoch, "kind", kind)

	if n := c.retries.Load(); int(n) < c.cfg.MaxRetries {
		n = c.retries.Add(1)
		delay := time.Duration(n) * c.cfg.RetryBaseDelay
		if !c.setStatus(a.epoch, Status{
			State:     StateError,
			ErrorKind: kind,
			Message:   kind.Message(),
			Attempt:   int(n),
			Retrying:  true,
		}) {
			return
		}
		log.Warn("transport error, retrying", "attempt", n, "delay", delay, "error", err)
		c.scheduleRetry(a.epoch, delay)
		return
	}

	if c.setStatus(a.epoch, Status{
		State:     StateError,
		ErrorKind: kind,
		Message:   kind.Message(),
		Attempt:   int(c.retries.Load()),
		CanRetry:  true,
	}) {
		log.Error("transport error, retries exhausted", "error", err)
	}
}

func (c *Controller) scheduleRetry(epoch uint64, delay time.Duration) {
	task := &retryTask{epoch: epoch}
	if old := c.retry.Swap(task); old != nil {
		old.stop()
	}
	task.arm(c.cfg.AfterFunc(delay, func() { c.fireRetry(task) }))
	c.metrics.RetriesScheduled.Inc()

	if !c.isCurrent(epoch) && c.retry.CompareAndSwap(task, nil) {
		task.stop()
	}
}

func (c *Controller) fireRetry(task *retryTask) {
	if !c.retry.CompareAndSwap(task, nil) || !c.isCurrent(task.epoch) {
		return
	}
	req := c.request.Load()
	if req == nil {
		return
	}
	if err := c.connect(c.ctx, *req, false); err != nil {
		c.log.Debug("retry attempt failed", "error", err)
	}
}

func (c *Controller) cancelRetry() {
	if t := c.retry.Swap(nil); t != nil {
		t.stop()
	}
}

// setStatus publishes next for epoch unless the epoch has been superseded.
func (c *Controller) setStatus(epoch uint64, next Status) bool {
	next.Epoch = epoch
	next.UpdatedAt = time.Now()
	for {
		prev := c.status.Load()
		if !c.isCurrent(epoch) {
			return false
		}
		if c.status.CompareAndSwap(prev, &next) {
			c.published(&next)
			return true
		}
	}
}

func (c *Controller) published(s *Status) {
	c.metrics.StateTransitions.WithLabelValues(string(s.State)).Inc()
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(*s)
	}
}
