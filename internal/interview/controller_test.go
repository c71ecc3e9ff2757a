package interview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/interview-coach/internal/audio"
	"github.com/eleven-am/interview-coach/internal/capture"
	"github.com/eleven-am/interview-coach/internal/live"
	"github.com/eleven-am/interview-coach/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingCloser struct {
	mu     sync.Mutex
	closes int
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeMic struct {
	mu      sync.Mutex
	opens   int
	err     error
	entered chan struct{}
	unblock chan struct{}
	onFrame func([]float32)
	streams []*countingCloser
}

func (m *fakeMic) Open(_ context.Context, _ capture.Format, onFrame func([]float32)) (io.Closer, error) {
	m.mu.Lock()
	m.opens++
	entered, unblock := m.entered, m.unblock
	m.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if unblock != nil {
		<-unblock
	}
	if m.err != nil {
		return nil, m.err
	}

	s := &countingCloser{}
	m.mu.Lock()
	m.onFrame = onFrame
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

func (m *fakeMic) frame(v float32) {
	m.mu.Lock()
	fn := m.onFrame
	m.mu.Unlock()
	samples := make([]float32, capture.FrameSize)
	for i := range samples {
		samples[i] = v
	}
	fn(samples)
}

func (m *fakeMic) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

type fakeSpeaker struct {
	mu      sync.Mutex
	opens   int
	err     error
	render  func([]float32)
	streams []*countingCloser
}

func (s *fakeSpeaker) Open(_ context.Context, _ int, render func([]float32)) (io.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.err != nil {
		return nil, s.err
	}
	st := &countingCloser{}
	s.render = render
	s.streams = append(s.streams, st)
	return st, nil
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	closes int
	cb     live.Callbacks
	cfg    live.Config
}

func (t *fakeTransport) Send(pcm []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, pcm)
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	return nil
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	errs       []error
}

func (d *fakeDialer) Dial(_ context.Context, cfg live.Config, cb live.Callbacks) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			d.transports = append(d.transports, nil)
			return nil, err
		}
	}
	t := &fakeTransport{cb: cb, cfg: cfg}
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.timers))
	for i, t := range f.timers {
		out[i] = t.delay
	}
	return out
}

// fireLast runs the most recent timer as if it had expired.
func (f *fakeTimers) fireLast(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	if len(f.timers) == 0 {
		f.mu.Unlock()
		t.Fatal("no timer scheduled")
	}
	timer := f.timers[len(f.timers)-1]
	f.mu.Unlock()
	timer.fn()
}

type harness struct {
	c       *Controller
	mic     *fakeMic
	speaker *fakeSpeaker
	dialer  *fakeDialer
	timers  *fakeTimers

	mu       sync.Mutex
	statuses []Status
}

func newHarness(apiKey string) *harness {
	h := &harness{
		mic:     &fakeMic{},
		speaker: &fakeSpeaker{},
		dialer:  &fakeDialer{},
		timers:  &fakeTimers{},
	}
	h.c = NewController(Config{
		Live:       live.Config{APIKey: apiKey},
		Microphone: h.mic,
		Speaker:    h.speaker,
		Dialer:     h.dialer,
		AfterFunc:  h.timers.AfterFunc,
		Metrics:    metrics.Discard(),
		OnStatus: func(s Status) {
			h.mu.Lock()
			h.statuses = append(h.statuses, s)
			h.mu.Unlock()
		},
	}, testLogger())
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.c.Connect(context.Background(), Request{Difficulty: live.DifficultyMedium}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
}

func (h *harness) state(t *testing.T, want State) Status {
	t.Helper()
	st := h.c.Status()
	if st.State != want {
		t.Fatalf("expected state %s, got %s (%+v)", want, st.State, st)
	}
	return st
}

func TestController_MissingCredential(t *testing.T) {
	h := newHarness("")

	err := h.c.Connect(context.Background(), Request{})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	st := h.state(t, StateError)
	if st.ErrorKind != ErrorMissingCredential {
		t.Errorf("expected missing credential kind, got %s", st.ErrorKind)
	}
	if h.mic.openCount() != 0 || h.speaker.opens != 0 || h.dialer.calls() != 0 {
		t.Errorf("no device or network access expected: mic=%d speaker=%d dial=%d",
			h.mic.openCount(), h.speaker.opens, h.dialer.calls())
	}
	if len(h.timers.delays()) != 0 {
		t.Error("missing credential must not schedule a retry")
	}
}

func TestController_ConnectThenOpen(t *testing.T) {
	h := newHarness("key")
	h.connect(t)

	h.state(t, StateConnecting)
	if h.c.LiveHandles() != 3 {
		t.Errorf("expected 3 live handles, got %d", h.c.LiveHandles())
	}

	tr := h.dialer.last()
	if tr.cfg.APIKey != "key" || tr.cfg.SystemPrompt == "" {
		t.Errorf("dial config not populated: %+v", tr.cfg)
	}

	h.mic.frame(0.1)
	if tr.sentCount() != 0 {
		t.Error("frames must not be sent before the transport opens")
	}

	tr.cb.OnOpen()
	st := h.state(t, StateConnected)
	if st.Epoch != h.c.Epoch() {
		t.Errorf("status epoch %d does not match current %d", st.Epoch, h.c.Epoch())
	}

	h.mic.frame(0.1)
	if tr.sentCount() != 1 {
		t.Errorf("expected 1 frame sent, got %d", tr.sentCount())
	}
}

func TestController_MuteGatesSend(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	tr := h.dialer.last()
	tr.cb.OnOpen()

	h.c.SetMuted(true)
	if !h.c.Muted() {
		t.Fatal("expected muted")
	}
	h.mic.frame(0.2)
	h.mic.frame(0.2)
	if tr.sentCount() != 0 {
		t.Errorf("muted frames were sent: %d", tr.sentCount())
	}

	h.c.SetMuted(false)
	h.mic.frame(0.2)
	if tr.sentCount() != 1 {
		t.Errorf("expected unmute to take effect on next frame, got %d sent", tr.sentCount())
	}
}

func TestController_LevelPublished(t *testing.T) {
	h := newHarness("key")
	var levels []float64
	h.c.cfg.OnLevel = func(l float64) { levels = append(levels, l) }
	h.connect(t)

	h.mic.frame(1)
	if len(levels) != 1 || levels[0] != capture.LevelCap {
		t.Errorf("expected one capped level, got %v", levels)
	}
}

func TestController_RetriesWithLinearBackoffThenStops(t *testing.T) {
	h := newHarness("key")
	h.connect(t)

	boom := errors.New("socket exploded")
	for i := 1; i <= 3; i++ {
		h.dialer.last().cb.OnError(boom)
		st := h.state(t, StateError)
		if !st.Retrying || st.Attempt != i {
			t.Fatalf("error %d: expected retrying attempt %d, got %+v", i, i, st)
		}
		h.timers.fireLast(t)
		h.state(t, StateConnecting)
	}

	h.dialer.last().cb.OnError(boom)
	st := h.state(t, StateError)
	if st.Retrying || !st.CanRetry {
		t.Errorf("expected terminal error with manual retry, got %+v", st)
	}
	if st.Attempt != 3 {
		t.Errorf("expected attempt 3, got %d", st.Attempt)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	got := h.timers.delays()
	if len(got) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("retry %d: expected %v, got %v", i+1, want[i], got[i])
		}
	}

	if h.dialer.calls() != 4 {
		t.Errorf("expected 4 dials (1 + 3 retries), got %d", h.dialer.calls())
	}
	for i, tr := range h.dialer.transports {
		if tr.closeCount() != 1 {
			t.Errorf("transport %d closed %d times", i, tr.closeCount())
		}
	}
	if h.c.LiveHandles() != 0 {
		t.Errorf("expected no live handles after terminal error, got %d", h.c.LiveHandles())
	}
}

func TestController_SuccessfulOpenResetsAttempt(t *testing.T) {
	h := newHarness("key")
	h.connect(t)

	boom := errors.New("connection reset by peer")
	h.dialer.last().cb.OnError(boom)
	h.timers.fireLast(t)
	h.dialer.last().cb.OnError(boom)
	h.timers.fireLast(t)

	h.dialer.last().cb.OnOpen()
	if st := h.state(t, StateConnected); st.Attempt != 0 {
		t.Errorf("expected attempt reset to 0, got %d", st.Attempt)
	}

	h.dialer.last().cb.OnError(boom)
	delays := h.timers.delays()
	if last := delays[len(delays)-1]; last != time.Second {
		t.Errorf("expected backoff to restart at 1s, got %v", last)
	}
	if st := h.c.Status(); st.ErrorKind != ErrorNetwork {
		t.Errorf("expected network classification, got %s", st.ErrorKind)
	}
}

func TestController_StaleCallbacksIgnored(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	old := h.dialer.last()

	h.connect(t)
	fresh := h.dialer.last()
	if old == fresh {
		t.Fatal("expected a new transport")
	}
	if old.closeCount() != 1 {
		t.Errorf("superseded transport should be closed once, got %d", old.closeCount())
	}

	old.cb.OnOpen()
	h.state(t, StateConnecting)
	old.cb.OnError(errors.New("late"))
	h.state(t, StateConnecting)
	old.cb.OnClose("late close")
	h.state(t, StateConnecting)
	old.cb.OnAudio([]byte{0, 0}, audio.OutputSampleRate)
	old.cb.OnInterrupted()

	if len(h.timers.delays()) != 0 {
		t.Error("stale error must not schedule a retry")
	}

	fresh.cb.OnOpen()
	h.state(t, StateConnected)
	if h.c.LiveHandles() != 3 {
		t.Errorf("expected only the fresh attempt's 3 handles, got %d", h.c.LiveHandles())
	}
	if len(h.mic.streams) != 2 || h.mic.streams[0].count() != 1 || h.mic.streams[1].count() != 0 {
		t.Error("expected the old microphone stream closed and the new one open")
	}
}

func TestController_GracefulCloseEnds(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	tr := h.dialer.last()
	tr.cb.OnOpen()

	tr.cb.OnClose("interview finished")
	st := h.state(t, StateEnded)
	if st.ErrorKind != ErrorGracefulClose || st.Message != "interview finished" {
		t.Errorf("unexpected ended status %+v", st)
	}
	if len(h.timers.delays()) != 0 {
		t.Error("graceful close must not retry")
	}
	if h.c.LiveHandles() != 0 || tr.closeCount() != 1 {
		t.Error("graceful close should release the attempt")
	}
}

func TestController_SetupFailureIsTerminal(t *testing.T) {
	h := newHarness("key")
	h.mic.err = capture.ErrPermissionDenied

	err := h.c.Connect(context.Background(), Request{})
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	st := h.state(t, StateError)
	if st.ErrorKind != ErrorPermissionDenied || st.Retrying {
		t.Errorf("unexpected status %+v", st)
	}
	if h.dialer.calls() != 0 || len(h.timers.delays()) != 0 {
		t.Error("setup failure must not dial or retry")
	}

	h2 := newHarness("key")
	h2.speaker.err = errors.New("no output device")
	if err := h2.c.Connect(context.Background(), Request{}); err == nil {
		t.Fatal("expected speaker error")
	}
	if st := h2.state(t, StateError); st.ErrorKind != ErrorSetupFailure {
		t.Errorf("expected setup failure, got %s", st.ErrorKind)
	}
	if h2.mic.streams[0].count() != 1 {
		t.Error("microphone acquired before the failure must be released")
	}
}

func TestController_DialFailureRetried(t *testing.T) {
	h := newHarness("key")
	h.dialer.errs = []error{&live.HandshakeError{StatusCode: 503, Err: errors.New("bad handshake")}}

	if err := h.c.Connect(context.Background(), Request{}); err == nil {
		t.Fatal("expected dial error")
	}
	st := h.state(t, StateError)
	if !st.Retrying || st.ErrorKind != ErrorServiceUnavailable {
		t.Errorf("unexpected status %+v", st)
	}
	if h.mic.streams[0].count() != 1 {
		t.Error("microphone should be released after a dial failure")
	}

	h.timers.fireLast(t)
	h.state(t, StateConnecting)
	h.dialer.last().cb.OnOpen()
	h.state(t, StateConnected)
}

func TestController_EndIsIdempotent(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	tr := h.dialer.last()
	tr.cb.OnOpen()

	h.c.End()
	h.c.End()

	h.state(t, StateClosed)
	if h.c.LiveHandles() != 0 {
		t.Errorf("expected zero live handles, got %d", h.c.LiveHandles())
	}
	if tr.closeCount() != 1 || h.mic.streams[0].count() != 1 || h.speaker.streams[0].count() != 1 {
		t.Errorf("each resource must be released exactly once: transport=%d mic=%d speaker=%d",
			tr.closeCount(), h.mic.streams[0].count(), h.speaker.streams[0].count())
	}

	tr.cb.OnError(errors.New("after end"))
	h.state(t, StateClosed)

	if err := h.c.Connect(context.Background(), Request{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := h.c.Retry(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Retry, got %v", err)
	}

	closed := 0
	for _, s := range h.statuses {
		if s.State == StateClosed {
			closed++
		}
	}
	if closed != 1 {
		t.Errorf("expected Closed published once, got %d", closed)
	}
}

func TestController_EndAfterEnded(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	h.dialer.last().cb.OnClose("bye")
	h.state(t, StateEnded)

	h.c.End()
	h.state(t, StateClosed)
	if h.c.LiveHandles() != 0 {
		t.Error("expected no live handles")
	}
}

func TestController_EndCancelsPendingRetry(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	h.dialer.last().cb.OnError(errors.New("timeout"))

	h.c.End()

	timer := h.timers.timers[0]
	if !timer.stopped {
		t.Error("pending retry timer should be stopped")
	}
	timer.fn()
	if h.dialer.calls() != 1 {
		t.Errorf("retry must never fire after End, got %d dials", h.dialer.calls())
	}
	h.state(t, StateClosed)
}

func TestController_EndWhileSetupSuspended(t *testing.T) {
	h := newHarness("key")
	h.mic.entered = make(chan struct{})
	h.mic.unblock = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- h.c.Connect(context.Background(), Request{})
	}()

	<-h.mic.entered
	ended := make(chan struct{})
	go func() {
		h.c.End()
		close(ended)
	}()
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("End blocked on a suspended connect")
	}

	close(h.mic.unblock)
	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}

	if len(h.mic.streams) != 1 || h.mic.streams[0].count() != 1 {
		t.Error("microphone acquired after End must be released")
	}
	if h.speaker.opens != 0 || h.dialer.calls() != 0 {
		t.Error("stale setup must stop at the first suspension point")
	}
	h.state(t, StateClosed)
}

func TestController_ManualRetry(t *testing.T) {
	h := newHarness("key")
	h.connect(t)

	if err := h.c.Retry(context.Background()); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("expected ErrNotRetryable while connecting, got %v", err)
	}

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		h.dialer.last().cb.OnError(boom)
		h.timers.fireLast(t)
	}
	h.dialer.last().cb.OnError(boom)
	if st := h.state(t, StateError); !st.CanRetry {
		t.Fatal("expected manual retry affordance")
	}

	if err := h.c.Retry(context.Background()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if st := h.state(t, StateConnecting); st.Attempt != 0 {
		t.Errorf("manual retry should reset attempt, got %d", st.Attempt)
	}

	h.dialer.last().cb.OnError(boom)
	delays := h.timers.delays()
	if delays[len(delays)-1] != time.Second {
		t.Errorf("expected fresh backoff after manual retry, got %v", delays[len(delays)-1])
	}
}

func TestController_AudioAndInterrupt(t *testing.T) {
	h := newHarness("key")
	h.connect(t)
	tr := h.dialer.last()
	tr.cb.OnOpen()

	samples := make([]float32, 2400)
	for i := range samples {
		samples[i] = 0.5
	}
	pcm := audio.Float32ToPCM16LE(samples)

	tr.cb.OnAudio(pcm, audio.OutputSampleRate)
	tr.cb.OnAudio(pcm, audio.OutputSampleRate)

	out := make([]float32, 480)
	h.speaker.render(out)
	if out[0] == 0 {
		t.Fatal("expected scheduled audio to play")
	}

	tr.cb.OnInterrupted()
	h.speaker.render(out)
	for _, s := range out {
		if s != 0 {
			t.Fatal("interrupt should silence queued audio")
		}
	}

	tr.cb.OnAudio(pcm, audio.OutputSampleRate)
	h.speaker.render(out)
	if out[0] == 0 {
		t.Error("audio after an interrupt should start immediately")
	}
}
