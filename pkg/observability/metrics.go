package observability

import (
	"context"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "convo"

// Metrics holds the collectors fed by the engine and the turn handlers.
type Metrics struct {
	dialogsStarted *prometheus.CounterVec
	dialogsEnded   *prometheus.CounterVec
	threadEntries  *prometheus.CounterVec
	messages       *prometheus.CounterVec
	captures       *prometheus.CounterVec
	turns          *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dialogsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dialogs_started_total",
			Help:      "Dialog frames started, including child dialogs.",
		}, []string{"script"}),
		dialogsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dialogs_ended_total",
			Help:      "Dialog frames ended, by outcome.",
		}, []string{"script", "outcome"}),
		threadEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "thread_entries_total",
			Help:      "Thread entries.",
		}, []string{"script", "thread"}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages delivered to the transport.",
		}, []string{"script", "kind"}), // kind: statement, prompt
		captures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "captures_total",
			Help:      "Replies stored into the variable bag.",
		}, []string{"script", "key"}),
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turns_total",
			Help:      "Turns handled, by result.",
		}, []string{"result"}), // result: success, error
		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent handling one turn, including persistence.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"result"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently stored with an active dialog.",
		}),
	}
}

// Hooks returns lifecycle hooks that record engine events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDialogBegin: func(_ context.Context, e *domain.DialogEvent) {
			m.dialogsStarted.WithLabelValues(e.ScriptID).Inc()
		},
		OnDialogEnd: func(_ context.Context, e *domain.DialogEvent) {
			m.dialogsEnded.WithLabelValues(e.ScriptID, e.Outcome).Inc()
		},
		OnThreadEnter: func(_ context.Context, e *domain.ThreadEvent) {
			m.threadEntries.WithLabelValues(e.ScriptID, e.Thread).Inc()
		},
		OnDeliver: func(_ context.Context, e *domain.MessageEvent) {
			kind := "statement"
			if e.Prompt {
				kind = "prompt"
			}
			m.messages.WithLabelValues(e.ScriptID, kind).Inc()
		},
		OnCapture: func(_ context.Context, e *domain.CaptureEvent) {
			m.captures.WithLabelValues(e.ScriptID, e.Key).Inc()
		},
	}
}

// ObserveTurn records one handled turn.
func (m *Metrics) ObserveTurn(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.turns.WithLabelValues(result).Inc()
	m.turnDuration.WithLabelValues(result).Observe(d.Seconds())
}

// SetActiveSessions records the number of stored active sessions.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
