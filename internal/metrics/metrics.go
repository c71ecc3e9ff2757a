// Package metrics exposes the Prometheus collectors shared by the interview
// pipeline. Collectors never affect control flow; they only observe it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "interview"

type Metrics struct {
	ConnectAttempts  prometheus.Counter
	RetriesScheduled prometheus.Counter
	TransportErrors  *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
	Interruptions    prometheus.Counter
	FramesSent       prometheus.Counter
	FramesMuted      prometheus.Counter
	SendsDropped     prometheus.Counter
	TeardownErrors   prometheus.Counter
	ActiveInterviews prometheus.Gauge
	ScoreRequests    *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts started, including automatic retries.",
		}),
		RetriesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_scheduled_total",
			Help:      "Automatic reconnects scheduled after a transport error.",
		}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Transport errors by classified kind.",
		}, []string{"kind"}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Controller state transitions by target state.",
		}, []string{"state"}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Barge-in events that flushed queued playback.",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_sent_total",
			Help:      "Captured frames handed to the transport.",
		}),
		FramesMuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_muted_total",
			Help:      "Captured frames metered but withheld by the mute gate.",
		}),
		SendsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_sends_dropped_total",
			Help:      "Outbound frames dropped because the send buffer was full or the write failed.",
		}),
		TeardownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_errors_total",
			Help:      "Errors swallowed while releasing capture, playback or transport resources.",
		}),
		ActiveInterviews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_interviews",
			Help:      "Interview sessions currently held by the manager.",
		}),
		ScoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_score_requests_total",
			Help:      "Resume scoring requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.ConnectAttempts,
		m.RetriesScheduled,
		m.TransportErrors,
		m.StateTransitions,
		m.Interruptions,
		m.FramesSent,
		m.FramesMuted,
		m.SendsDropped,
		m.TeardownErrors,
		m.ActiveInterviews,
		m.ScoreRequests,
	)
	return m
}

// Discard returns collectors bound to a private registry, for components
// constructed without metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
