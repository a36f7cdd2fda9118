// Command convo runs scripted dialogs from a directory of YAML scripts, in a
// terminal or behind an HTTP webhook.
package main

func main() {
	Execute()
}
