package convo_test

import (
	"context"
	"fmt"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/script"
)

func Example() {
	onboarding := script.New("onboarding").
		Say("Hi there!").
		Ask("What is your name?", "name").
		Ask("Do you like {{vars.name}}'s favorite color, red?", "likes_red",
			script.Match("yes", script.Goto("yes")),
			script.Default(script.Goto("no")),
		).
		AddMessage("yes", script.Text("Great, {{vars.name}}!")).
		AddMessage("no", script.Text("Fair enough.")).
		MustBuild()

	bot, err := convo.New(memory.NewRegistry(onboarding))
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	for _, text := range []string{"hello", "Ada", "yes please"} {
		res, err := bot.HandleTurn(ctx, "user-1", "onboarding", text)
		if err != nil {
			panic(err)
		}
		for _, line := range res.Texts() {
			fmt.Println(line)
		}
	}
	// Output:
	// Hi there!
	// What is your name?
	// Do you like Ada's favorite color, red?
	// Great, Ada!
}
