package script

import (
	"regexp"
	"slices"
)

// MatchType selects how a branch pattern is tested against a reply.
type MatchType string

const (
	// MatchString is a case-insensitive substring test.
	MatchString MatchType = "string"
	// MatchRegex is a case-insensitive regular expression test.
	MatchRegex MatchType = "regex"
)

// Line is one scripted step: a statement (no Collect) or a prompt.
type Line struct {
	// Content holds alternative texts; one is picked at random when rendered.
	Content []string
	// Payload is an opaque rich attachment passed to the transport.
	Payload any
	// Collect is set on prompt lines only.
	Collect *Collect
	// Action is set on statement lines that redirect control.
	Action *Action
}

// IsPrompt reports whether the line suspends for a reply.
func (l Line) IsPrompt() bool { return l.Collect != nil }

// Collect describes how a prompt's reply is captured and branched on.
type Collect struct {
	// Key names the variable receiving the reply. Empty discards it.
	Key     string
	Options []Branch
}

// Branch is a pattern-guarded action evaluated against a reply.
type Branch struct {
	Pattern string
	Match   MatchType
	Default bool
	Action  Action

	re *regexp.Regexp
}

// Match builds a case-insensitive substring branch.
func Match(pattern string, action Action) Branch {
	return Branch{Pattern: pattern, Match: MatchString, Action: action}
}

// MatchRegexp builds a case-insensitive regular expression branch.
func MatchRegexp(pattern string, action Action) Branch {
	return Branch{Pattern: pattern, Match: MatchRegex, Action: action}
}

// Default builds the fallback branch.
func Default(action Action) Branch {
	return Branch{Default: true, Action: action}
}

// On builds a substring branch that runs a custom handler.
func On(pattern string, h BranchHandler) Branch {
	return Match(pattern, Custom(h))
}

func (b *Branch) compile() error {
	if b.Default {
		return nil
	}
	expr := b.Pattern
	if b.Match != MatchRegex {
		expr = regexp.QuoteMeta(b.Pattern)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return err
	}
	b.re = re
	return nil
}

// Matches tests the reply against the branch pattern. Default branches never
// match directly; they are chosen by Select.
func (b Branch) Matches(reply string) bool {
	if b.Default || reply == "" {
		return false
	}
	if b.re == nil {
		if err := b.compile(); err != nil {
			return false
		}
	}
	return b.re.MatchString(reply)
}

// Select returns the first non-default branch matching reply, falling back to
// the first declared default branch. It returns false when nothing applies.
func (c *Collect) Select(reply string) (Branch, bool) {
	for _, b := range c.Options {
		if b.Matches(reply) {
			return b, true
		}
	}
	for _, b := range c.Options {
		if b.Default {
			return b, true
		}
	}
	return Branch{}, false
}

// Script is an immutable dialog definition: named threads of lines plus the
// hooks attached to them. It is safe for concurrent use.
type Script struct {
	id      string
	threads map[string][]Line
	order   []string
	hooks   hooks
}

// ID returns the script identifier.
func (s *Script) ID() string { return s.id }

// Threads returns thread names in declaration order.
func (s *Script) Threads() []string { return slices.Clone(s.order) }

// Thread returns the lines of a thread. The slice must be treated as read-only.
func (s *Script) Thread(name string) ([]Line, bool) {
	lines, ok := s.threads[name]
	return lines, ok
}

// HasThread reports whether the thread exists.
func (s *Script) HasThread(name string) bool {
	_, ok := s.threads[name]
	return ok
}

// BeforeHooks returns the before handlers registered for thread.
func (s *Script) BeforeHooks(thread string) []BeforeHandler {
	return slices.Clone(s.hooks.before[thread])
}

// ChangeHooks returns the on-change handlers registered for a variable.
func (s *Script) ChangeHooks(key string) []ChangeHandler {
	return slices.Clone(s.hooks.change[key])
}

// AfterHooks returns the dialog-level after handlers.
func (s *Script) AfterHooks() []AfterHandler {
	return slices.Clone(s.hooks.after)
}

// Reference is a dialog started or jumped to from a script.
type Reference struct {
	ScriptID string
	// Thread is the start thread, empty for the default one.
	Thread string
}

// References returns every dialog this script starts or jumps to, in
// declaration order without duplicates.
func (s *Script) References() []Reference {
	seen := map[Reference]bool{}
	var refs []Reference
	add := func(a *Action) {
		if a == nil || (a.Kind != ActionExecuteScript && a.Kind != ActionGotoDialog) {
			return
		}
		ref := Reference{ScriptID: a.ScriptID, Thread: a.Thread}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	for _, name := range s.order {
		for _, line := range s.threads[name] {
			add(line.Action)
			if line.Collect != nil {
				for i := range line.Collect.Options {
					add(&line.Collect.Options[i].Action)
				}
			}
		}
	}
	return refs
}

// Derive returns a builder seeded with a copy of this script, for attaching
// hooks to a loaded script without mutating the shared instance.
func (s *Script) Derive() *Builder {
	b := New(s.id)
	for _, name := range s.order {
		b.declare(name)
		b.threads[name] = cloneLines(s.threads[name])
	}
	b.hooks = s.hooks.clone()
	return b
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{
			Content: slices.Clone(l.Content),
			Payload: l.Payload,
		}
		if l.Action != nil {
			a := *l.Action
			out[i].Action = &a
		}
		if l.Collect != nil {
			out[i].Collect = &Collect{
				Key:     l.Collect.Key,
				Options: slices.Clone(l.Collect.Options),
			}
		}
	}
	return out
}
