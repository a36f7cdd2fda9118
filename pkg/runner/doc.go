/*
Package runner drives a dialog from a terminal or another process.

The Runner starts (or resumes) one session of a script through a convo.Bot,
prints the messages of each turn through an IOHandler and sends every line
the user types back as the next reply. Replies are sanitized first. Failed
turns are logged and replaced by a fallback line, so errors never reach the
user.

	r := runner.NewRunner(bot, "onboarding",
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

Typing "exit" or "quit", closing the input or sending SIGINT leaves the loop.
*/
package runner
