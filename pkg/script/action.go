package script

import (
	"context"
	"fmt"
	"strings"
)

// ActionKind is the closed set of control-flow behaviors a line or branch can trigger.
type ActionKind int

const (
	// ActionNext falls through: the current line is processed normally.
	ActionNext ActionKind = iota
	// ActionGoto jumps to index 0 of another thread in the same turn.
	ActionGoto
	// ActionRepeat re-runs the previous line (redisplays a prompt).
	ActionRepeat
	// ActionComplete ends the dialog with outcome "completed".
	ActionComplete
	// ActionStop ends the dialog with outcome "canceled".
	ActionStop
	// ActionTimeout ends the dialog with outcome "timeout".
	ActionTimeout
	// ActionExecuteScript starts a child dialog; the parent resumes when it completes.
	ActionExecuteScript
	// ActionGotoDialog replaces the current dialog with another script.
	ActionGotoDialog
	// ActionWait parks the dialog without advancing.
	ActionWait
	// ActionCustom invokes a user handler.
	ActionCustom
)

var kindNames = map[ActionKind]string{
	ActionNext:          "next",
	ActionGoto:          "goto",
	ActionRepeat:        "repeat",
	ActionComplete:      "complete",
	ActionStop:          "stop",
	ActionTimeout:       "timeout",
	ActionExecuteScript: "execute_script",
	ActionGotoDialog:    "goto_dialog",
	ActionWait:          "wait",
	ActionCustom:        "custom",
}

func (k ActionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// BranchHandler is a custom action. It may redirect through sc; if it does
// not, processing falls through to the current line.
type BranchHandler func(ctx context.Context, reply string, sc StepContext) error

// Action is a resolved control-flow instruction.
type Action struct {
	Kind ActionKind

	// Thread is the goto target, or the start thread of a child/replacement dialog.
	Thread string
	// ScriptID names the dialog for ActionExecuteScript and ActionGotoDialog.
	ScriptID string
	// Key receives the child's final variables (ActionExecuteScript).
	Key string

	Handler BranchHandler
}

// Goto jumps to another thread.
func Goto(thread string) Action { return Action{Kind: ActionGoto, Thread: thread} }

// Next falls through to the current line.
func Next() Action { return Action{Kind: ActionNext} }

// Repeat re-runs the previous line.
func Repeat() Action { return Action{Kind: ActionRepeat} }

// Complete ends the dialog successfully.
func Complete() Action { return Action{Kind: ActionComplete} }

// Stop cancels the dialog.
func Stop() Action { return Action{Kind: ActionStop} }

// Timeout ends the dialog with the timeout outcome.
func Timeout() Action { return Action{Kind: ActionTimeout} }

// Wait parks the dialog where it is.
func Wait() Action { return Action{Kind: ActionWait} }

// ExecuteScript starts scriptID as a child dialog. When key is empty the
// child's variables are stored under the script ID.
func ExecuteScript(scriptID, key string) Action {
	if key == "" {
		key = scriptID
	}
	return Action{Kind: ActionExecuteScript, ScriptID: scriptID, Key: key}
}

// GotoDialog replaces the current dialog with scriptID.
func GotoDialog(scriptID string) Action {
	return Action{Kind: ActionGotoDialog, ScriptID: scriptID}
}

// Custom wraps a handler.
func Custom(h BranchHandler) Action { return Action{Kind: ActionCustom, Handler: h} }

// AtThread sets the thread a child or replacement dialog starts on.
func (a Action) AtThread(thread string) Action {
	a.Thread = thread
	return a
}

// ParseAction resolves a keyword once, at build time. Any word that is not a
// reserved keyword names a thread.
func ParseAction(word string) Action {
	switch strings.TrimSpace(word) {
	case "", "next":
		return Next()
	case "repeat":
		return Repeat()
	case "complete":
		return Complete()
	case "stop":
		return Stop()
	case "timeout":
		return Timeout()
	case "wait":
		return Wait()
	case "execute_script", "beginDialog":
		return Action{Kind: ActionExecuteScript}
	case "goto_dialog":
		return Action{Kind: ActionGotoDialog}
	}
	return Goto(strings.TrimSpace(word))
}

func (a Action) String() string {
	switch a.Kind {
	case ActionGoto:
		return a.Thread
	case ActionExecuteScript, ActionGotoDialog:
		if a.Thread != "" {
			return fmt.Sprintf("%s(%s#%s)", a.Kind, a.ScriptID, a.Thread)
		}
		return fmt.Sprintf("%s(%s)", a.Kind, a.ScriptID)
	}
	return a.Kind.String()
}

// Ends reports whether the action finishes the current dialog.
func (a Action) Ends() bool {
	return a.Kind == ActionComplete || a.Kind == ActionStop || a.Kind == ActionTimeout
}

func (a Action) validate(threads map[string][]Line) error {
	switch a.Kind {
	case ActionGoto:
		if _, ok := threads[a.Thread]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownThread, a.Thread)
		}
	case ActionExecuteScript, ActionGotoDialog:
		if a.ScriptID == "" {
			return fmt.Errorf("%w: %s requires a script id", ErrInvalidAction, a.Kind)
		}
	case ActionCustom:
		if a.Handler == nil {
			return fmt.Errorf("%w: custom action without handler", ErrInvalidAction)
		}
	}
	return nil
}
