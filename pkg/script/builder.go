package script

import (
	"errors"
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
)

// Builder declares threads, lines and hooks, then compiles them into an
// immutable Script. A Builder is not safe for concurrent use.
type Builder struct {
	id      string
	threads map[string][]Line
	order   []string
	hooks   hooks
	errs    []error
}

// New creates a builder for the script with the given ID.
func New(id string) *Builder {
	return &Builder{
		id:      id,
		threads: make(map[string][]Line),
		hooks:   newHooks(),
	}
}

// ID returns the ID of the script being built.
func (b *Builder) ID() string { return b.id }

func (b *Builder) declare(thread string) {
	if _, ok := b.threads[thread]; ok {
		return
	}
	b.threads[thread] = nil
	b.order = append(b.order, thread)
}

func (b *Builder) add(thread string, line Line) *Builder {
	if thread == "" {
		thread = domain.DefaultThread
	}
	b.declare(thread)
	b.threads[thread] = append(b.threads[thread], line)
	return b
}

// Thread declares an empty thread. Adding a line declares its thread implicitly.
func (b *Builder) Thread(name string) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: empty thread name", ErrUnknownThread))
		return b
	}
	b.declare(name)
	return b
}

// Message is a line under construction.
type Message struct {
	line Line
}

// Text starts a message with one or more alternative texts.
func Text(alternatives ...string) Message {
	return Message{line: Line{Content: alternatives}}
}

// WithPayload attaches a rich payload.
func (m Message) WithPayload(payload any) Message {
	m.line.Payload = payload
	return m
}

// WithAction makes the message redirect control once delivered.
func (m Message) WithAction(a Action) Message {
	m.line.Action = &a
	return m
}

// Say appends a statement to the default thread.
func (b *Builder) Say(alternatives ...string) *Builder {
	return b.AddMessage(domain.DefaultThread, Text(alternatives...))
}

// AddMessage appends a statement to thread.
func (b *Builder) AddMessage(thread string, m Message) *Builder {
	return b.add(thread, m.line)
}

// Ask appends a prompt to the default thread. The reply is stored under key
// (when set) and tested against branches in order.
func (b *Builder) Ask(prompt string, key string, branches ...Branch) *Builder {
	return b.AddQuestion(domain.DefaultThread, Text(prompt), key, branches...)
}

// AddQuestion appends a prompt to thread.
func (b *Builder) AddQuestion(thread string, m Message, key string, branches ...Branch) *Builder {
	line := m.line
	line.Action = nil
	line.Collect = &Collect{Key: key, Options: append([]Branch(nil), branches...)}
	return b.add(thread, line)
}

// AddAction appends a contentless statement that only performs a.
func (b *Builder) AddAction(thread string, a Action) *Builder {
	return b.add(thread, Line{Action: &a})
}

// AddChildDialog appends a line that runs scriptID as a child dialog, storing
// its final variables under key.
func (b *Builder) AddChildDialog(thread, scriptID, key string) *Builder {
	return b.AddAction(thread, ExecuteScript(scriptID, key))
}

// AddGotoDialog appends a line that replaces this dialog with scriptID.
func (b *Builder) AddGotoDialog(thread, scriptID string) *Builder {
	return b.AddAction(thread, GotoDialog(scriptID))
}

// Before registers a handler run when thread is entered.
func (b *Builder) Before(thread string, h BeforeHandler) *Builder {
	b.hooks.before[thread] = append(b.hooks.before[thread], h)
	return b
}

// OnChange registers a handler run when a reply is captured into key.
func (b *Builder) OnChange(key string, h ChangeHandler) *Builder {
	b.hooks.change[key] = append(b.hooks.change[key], h)
	return b
}

// After registers a handler run when the dialog completes.
func (b *Builder) After(h AfterHandler) *Builder {
	b.hooks.after = append(b.hooks.after, h)
	return b
}

// Build validates the declared threads and returns the immutable Script.
// Every problem found is reported in a single *BuildError.
func (b *Builder) Build() (*Script, error) {
	errs := append([]error(nil), b.errs...)
	threads := make(map[string][]Line, len(b.threads))
	for _, name := range b.order {
		threads[name] = cloneLines(b.threads[name])
	}

	if _, ok := threads[domain.DefaultThread]; !ok {
		errs = append(errs, ErrNoDefaultThread)
	}

	for _, name := range b.order {
		for i := range threads[name] {
			if err := compileLine(&threads[name][i], threads); err != nil {
				errs = append(errs, &LineError{Thread: name, Index: i, Err: err})
			}
		}
	}

	for thread := range b.hooks.before {
		if _, ok := threads[thread]; !ok {
			errs = append(errs, fmt.Errorf("before hook: %w: %q", ErrUnknownThread, thread))
		}
	}

	if len(errs) > 0 {
		return nil, &BuildError{ScriptID: b.id, Errs: errs}
	}

	return &Script{
		id:      b.id,
		threads: threads,
		order:   append([]string(nil), b.order...),
		hooks:   b.hooks.clone(),
	}, nil
}

// MustBuild is like Build but panics on error. Intended for package-level scripts.
func (b *Builder) MustBuild() *Script {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func compileLine(line *Line, threads map[string][]Line) error {
	var errs []error
	if len(line.Content) == 0 && line.Payload == nil && line.Collect == nil && line.Action == nil {
		return ErrEmptyLine
	}
	if line.Action != nil {
		if err := line.Action.validate(threads); err != nil {
			errs = append(errs, err)
		}
	}
	if line.Collect != nil {
		for i := range line.Collect.Options {
			br := &line.Collect.Options[i]
			if err := br.compile(); err != nil {
				errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidPattern, br.Pattern, err))
			}
			if err := br.Action.validate(threads); err != nil {
				errs = append(errs, fmt.Errorf("branch %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}
