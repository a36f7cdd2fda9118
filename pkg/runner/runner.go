package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

// DefaultFallback is shown when a turn fails. Errors are logged, never shown.
const DefaultFallback = "Sorry, something went wrong. Please try again."

// Turner is the part of convo.Bot the runner drives.
type Turner interface {
	HandleTurn(ctx context.Context, sessionID, scriptID, text string) (*convo.TurnResult, error)
	Apply(ctx context.Context, sessionID string, action script.Action) (*convo.TurnResult, error)
	Cancel(ctx context.Context, sessionID string) (*convo.TurnResult, error)
}

// Runner runs one session of a dialog in a read-reply loop, e.g. in a terminal.
type Runner struct {
	bot      Turner
	scriptID string

	SessionID string
	Handler   IOHandler
	Logger    *slog.Logger
	// Fallback is shown in place of a failed turn.
	Fallback string
	// CancelOnExit ends the dialog when the user leaves. Otherwise the
	// session stays stored and a later run resumes it.
	CancelOnExit bool
	// HandleSignals treats SIGINT/SIGTERM as the user leaving.
	HandleSignals bool
	Renderer      ContentRenderer
}

// NewRunner creates a Runner for scriptID. Defaults: a random session ID,
// a TextHandler on Stdin/Stdout and signal handling enabled.
func NewRunner(bot Turner, scriptID string, opts ...Option) *Runner {
	r := &Runner{
		bot:           bot,
		scriptID:      scriptID,
		SessionID:     "cli-" + newID(),
		Logger:        logging.NewNop(),
		Fallback:      DefaultFallback,
		HandleSignals: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// exitWords end the loop without being sent to the dialog.
var exitWords = map[string]bool{"exit": true, "quit": true, "/exit": true, "/quit": true}

// Run executes the loop until the dialog completes or the user leaves.
func (r *Runner) Run(ctx context.Context) error {
	handler := r.resolveHandler()

	if r.HandleSignals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	res, err := r.start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start dialog: %w", err)
	}

	for {
		if err := handler.Output(ctx, res.Messages); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if res.Completed() {
			r.Logger.Debug("dialog completed", "session_id", r.SessionID, "outcome", res.State.Outcome())
			return nil
		}

		text, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return r.leave(handler)
			}
			return fmt.Errorf("input error: %w", err)
		}
		if exitWords[strings.ToLower(text)] {
			return r.leave(handler)
		}

		next, err := r.bot.HandleTurn(ctx, r.SessionID, r.scriptID, text)
		if err != nil {
			if ctx.Err() != nil {
				return r.leave(handler)
			}
			r.Logger.Error("turn failed", "session_id", r.SessionID, "error", err)
			_ = handler.SystemOutput(ctx, r.Fallback)
			res = &convo.TurnResult{}
			continue
		}
		res = next
	}
}

// start resumes a stored session by re-sending its pending prompt, or begins
// the script.
func (r *Runner) start(ctx context.Context) (*convo.TurnResult, error) {
	res, err := r.bot.Apply(ctx, r.SessionID, script.Repeat())
	if err == nil {
		r.Logger.Debug("session resumed", "session_id", r.SessionID)
		return res, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrDialogCompleted) {
		return nil, err
	}
	return r.bot.HandleTurn(ctx, r.SessionID, r.scriptID, "")
}

func (r *Runner) leave(handler IOHandler) error {
	// The loop context may already be canceled.
	ctx := context.Background()
	if !r.CancelOnExit {
		_ = handler.SystemOutput(ctx, fmt.Sprintf("Session %s saved.", r.SessionID))
		return nil
	}
	if _, err := r.bot.Cancel(ctx, r.SessionID); err != nil &&
		!errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrDialogCompleted) {
		return fmt.Errorf("failed to cancel dialog: %w", err)
	}
	_ = handler.SystemOutput(ctx, "Dialog canceled.")
	return nil
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout, WithTextHandlerRenderer(r.Renderer))
	}
	return r.Handler
}
