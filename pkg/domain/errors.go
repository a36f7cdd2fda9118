package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrDialogCompleted is returned when a reply is applied to a finished dialog.
var ErrDialogCompleted = errors.New("dialog already completed")

// ErrScriptNotFound is returned when a script ID is not registered.
var ErrScriptNotFound = errors.New("script not found")
