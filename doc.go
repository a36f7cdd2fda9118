/*
Package convo runs scripted, branching conversations between a bot and a user,
independent of the messaging platform.

A conversation is described by a script: named threads of lines. Statements
are delivered and chain into the next line within the same turn; a prompt is
delivered and suspends the dialog until the next inbound message, whose text is
captured into a variable and tested against the prompt's branches.

# Concept

The engine never blocks and never owns a timer. The host calls it once per
inbound message; the Bot loads the session state under a per-session lock,
resumes the dialog at the stored position, and persists the new state before
returning the messages delivered during the turn.

	colors := script.New("colors").
		Ask("Pick a color:", "color",
			script.Match("red", script.Goto("red_thread")),
			script.Default(script.Repeat()),
		).
		AddMessage("red_thread", script.Text("Red it is, {{vars.name}}.")).
		MustBuild()

	bot, err := convo.New(memory.NewRegistry(colors))
	if err != nil {
		log.Fatal(err)
	}

	res, _ := bot.HandleTurn(ctx, "user-1", "colors", "hi")   // "Pick a color:"
	res, _ = bot.HandleTurn(ctx, "user-1", "colors", "red!")  // "Red it is, ."

# Persistence

Sessions are stored through a ports.StateStore: in memory (default), as JSON
files (pkg/adapters/file) or in Redis (pkg/adapters/redis). Stores can be
wrapped with pkg/persistence/middleware for encryption at rest and masking.
Completed dialogs are removed unless WithRetainCompleted is set.

# Timeouts

Idle sessions are ended by the host: Timeout applies a synthetic timeout turn
to one session, ExpireIdle sweeps the store.
*/
package convo
