/*
Package script defines dialog scripts: named threads of lines plus the hooks
attached to them.

A script is declared with a Builder and compiled once by Build, which resolves
every action, compiles branch patterns and reports all authoring errors
together. The resulting *Script is immutable and may be shared by any number
of concurrent dialogs.

	greet := script.New("greet").
		Say("Hi there!").
		Ask("What is your name?", "name").
		Say("Nice to meet you, {{vars.name}}.").
		After(func(ctx context.Context, vars map[string]any) error {
			return crm.Save(ctx, vars["name"])
		}).
		MustBuild()

Lines are either statements, sent and followed immediately by the next line,
or prompts, which suspend the dialog until the user replies. A prompt may store
the reply under a key and branch on it:

	b.Ask("Pick a color:", "color",
		script.Match("red", script.Goto("red_thread")),
		script.MatchRegexp(`^blue|navy$`, script.Goto("blue_thread")),
		script.Default(script.Repeat()),
	)

Branches are tested in declaration order and the first match wins. The first
declared Default branch applies when nothing else matches.
*/
package script
