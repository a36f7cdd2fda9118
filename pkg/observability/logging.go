package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/convo/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured record per event.
// Dialog boundaries log at Info, everything else at Debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.Default()
	}
	return domain.LifecycleHooks{
		OnDialogBegin: func(ctx context.Context, e *domain.DialogEvent) {
			logger.InfoContext(ctx, "dialog_begin",
				"session_id", e.SessionID,
				"script_id", e.ScriptID,
				"depth", e.Depth,
			)
		},
		OnDialogEnd: func(ctx context.Context, e *domain.DialogEvent) {
			logger.InfoContext(ctx, "dialog_end",
				"session_id", e.SessionID,
				"script_id", e.ScriptID,
				"outcome", e.Outcome,
				"depth", e.Depth,
			)
		},
		OnThreadEnter: func(ctx context.Context, e *domain.ThreadEvent) {
			logger.DebugContext(ctx, "thread_enter",
				"session_id", e.SessionID,
				"script_id", e.ScriptID,
				"thread", e.Thread,
				"from", e.From,
			)
		},
		OnDeliver: func(ctx context.Context, e *domain.MessageEvent) {
			logger.DebugContext(ctx, "deliver",
				"session_id", e.SessionID,
				"thread", e.Thread,
				"line", e.LineIndex,
				"prompt", e.Prompt,
			)
		},
		OnCapture: func(ctx context.Context, e *domain.CaptureEvent) {
			// The captured value may be sensitive; only the key is logged.
			logger.DebugContext(ctx, "capture",
				"session_id", e.SessionID,
				"script_id", e.ScriptID,
				"key", e.Key,
			)
		},
	}
}
