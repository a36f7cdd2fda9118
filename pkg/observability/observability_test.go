package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func base(script string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), SessionID: "s1", ScriptID: script}
}

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnDialogBegin(ctx, &domain.DialogEvent{EventBase: base("colors"), Depth: 1})
	hooks.OnThreadEnter(ctx, &domain.ThreadEvent{EventBase: base("colors"), Thread: "default"})
	hooks.OnDeliver(ctx, &domain.MessageEvent{EventBase: base("colors"), Prompt: true})
	hooks.OnDeliver(ctx, &domain.MessageEvent{EventBase: base("colors")})
	hooks.OnDeliver(ctx, &domain.MessageEvent{EventBase: base("colors")})
	hooks.OnCapture(ctx, &domain.CaptureEvent{EventBase: base("colors"), Key: "color"})
	hooks.OnDialogEnd(ctx, &domain.DialogEvent{EventBase: base("colors"), Outcome: domain.OutcomeCompleted})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dialogsStarted.WithLabelValues("colors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.threadEntries.WithLabelValues("colors", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("colors", "prompt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("colors", "statement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captures.WithLabelValues("colors", "color")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dialogsEnded.WithLabelValues("colors", domain.OutcomeCompleted)))
}

func TestMetrics_Turns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTurn(10*time.Millisecond, nil)
	m.ObserveTurn(time.Millisecond, errors.New("boom"))
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))

	n, err := testutil.GatherAndCount(reg, "convo_turn_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := LogHooks(logger)
	ctx := context.Background()

	hooks.OnDialogBegin(ctx, &domain.DialogEvent{EventBase: base("colors"), Depth: 1})
	hooks.OnCapture(ctx, &domain.CaptureEvent{EventBase: base("colors"), Key: "password"})

	out := buf.String()
	assert.Contains(t, out, `"msg":"dialog_begin"`)
	assert.Contains(t, out, `"script_id":"colors"`)
	assert.Contains(t, out, `"key":"password"`)
}

func TestHooks_Merge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	var buf bytes.Buffer
	hooks := m.Hooks().Merge(LogHooks(slog.New(slog.NewTextHandler(&buf, nil))))

	hooks.OnDialogEnd(context.Background(), &domain.DialogEvent{EventBase: base("x"), Outcome: domain.OutcomeCanceled})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dialogsEnded.WithLabelValues("x", domain.OutcomeCanceled)))
	assert.Contains(t, buf.String(), "dialog_end")
}
