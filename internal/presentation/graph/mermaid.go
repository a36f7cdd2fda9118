package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

// Overlay marks runtime position on the chart.
type Overlay struct {
	// VisitedThreads are styled as visited.
	VisitedThreads []string
	// Thread and LineIndex locate the line the dialog is parked on.
	Thread    string
	LineIndex int
}

// OverlayFor locates the outermost frame of state running scriptID. It
// returns nil when no frame of the session runs that script.
func OverlayFor(state *domain.State, scriptID string) *Overlay {
	for f := state; f != nil; f = f.Child {
		if f.ScriptID == scriptID {
			return &Overlay{VisitedThreads: f.History, Thread: f.Thread, LineIndex: f.LineIndex}
		}
	}
	return nil
}

// GenerateMermaid renders a script as a Mermaid flowchart, one subgraph per
// thread. Shapes:
//   - prompt lines: [/parallelogram/]
//   - child and replacement dialogs: [[subroutine]]
//   - statements: [rectangle]
//
// Lines follow each other with solid arrows, branches are labeled by pattern,
// and references to other scripts are dotted.
func GenerateMermaid(s *script.Script, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"" + escape(s.ID()) + "\"))\n")
	sb.WriteString("    start --> " + lineID(firstThread(s), 0) + "\n")

	ends := false
	external := map[string]bool{}

	for _, thread := range s.Threads() {
		lines, _ := s.Thread(thread)
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", sanitizeID("t_"+thread), escape(thread))
		if len(lines) == 0 {
			fmt.Fprintf(&sb, "        %s[\"(empty)\"]\n", lineID(thread, 0))
		}
		for i, line := range lines {
			fmt.Fprintf(&sb, "        %s\n", shape(thread, i, line))
		}
		sb.WriteString("    end\n")

		for i, line := range lines {
			from := lineID(thread, i)
			next := ""
			if i+1 < len(lines) {
				next = lineID(thread, i+1)
			}

			if line.Collect != nil {
				hasDefault := false
				for _, br := range line.Collect.Options {
					label := br.Pattern
					if br.Default {
						label = "default"
						hasDefault = true
					} else if br.Match == script.MatchRegex {
						label = "/" + br.Pattern + "/"
					}
					to, dotted := target(br.Action, thread, i, next)
					ends = ends || to == "done"
					if br.Action.Kind == script.ActionExecuteScript || br.Action.Kind == script.ActionGotoDialog {
						external[br.Action.ScriptID] = true
					}
					writeEdge(&sb, from, to, label, dotted)
				}
				if !hasDefault {
					if next == "" {
						next = "done"
						ends = true
					}
					writeEdge(&sb, from, next, "", false)
				}
				continue
			}

			if line.Action != nil {
				to, dotted := target(*line.Action, thread, i, next)
				switch line.Action.Kind {
				case script.ActionExecuteScript:
					external[line.Action.ScriptID] = true
					writeEdge(&sb, from, to, "", true)
					// The parent resumes past the child.
					to, dotted = next, false
					if to == "" {
						to = "done"
					}
				case script.ActionGotoDialog:
					external[line.Action.ScriptID] = true
				}
				ends = ends || to == "done"
				writeEdge(&sb, from, to, "", dotted)
				continue
			}

			if next == "" {
				next = "done"
				ends = true
			}
			writeEdge(&sb, from, next, "", false)
		}
	}

	for _, ref := range sortedKeys(external) {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", scriptNode(ref), escape(ref))
	}
	if ends {
		sb.WriteString("    done((\"end\"))\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := map[string]bool{}
		for _, thread := range overlay.VisitedThreads {
			id := sanitizeID("t_" + thread)
			if !seen[id] && s.HasThread(thread) {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.Thread != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", lineID(overlay.Thread, overlay.LineIndex))
		}
	}

	return sb.String()
}

func firstThread(s *script.Script) string {
	if threads := s.Threads(); len(threads) > 0 && !s.HasThread("default") {
		return threads[0]
	}
	return "default"
}

// target returns the node an action leads to and whether the edge is dotted.
func target(a script.Action, thread string, index int, next string) (string, bool) {
	switch a.Kind {
	case script.ActionGoto:
		return lineID(a.Thread, 0), false
	case script.ActionRepeat:
		return lineID(thread, index), false
	case script.ActionComplete, script.ActionStop, script.ActionTimeout:
		return "done", false
	case script.ActionExecuteScript, script.ActionGotoDialog:
		return scriptNode(a.ScriptID), true
	case script.ActionWait:
		return lineID(thread, index), true
	}
	if next == "" {
		return "done", false
	}
	return next, false
}

func shape(thread string, index int, line script.Line) string {
	id := lineID(thread, index)
	label := ""
	if len(line.Content) > 0 {
		label = line.Content[0]
		if len(line.Content) > 1 {
			label += fmt.Sprintf(" (+%d)", len(line.Content)-1)
		}
	}
	switch {
	case line.Collect != nil:
		if line.Collect.Key != "" {
			label += " → " + line.Collect.Key
		}
		return fmt.Sprintf("%s[/\"%s\"/]", id, escape(truncate(label)))
	case line.Action != nil && (line.Action.Kind == script.ActionExecuteScript || line.Action.Kind == script.ActionGotoDialog):
		if label == "" {
			label = line.Action.String()
		}
		return fmt.Sprintf("%s[[\"%s\"]]", id, escape(truncate(label)))
	case label == "" && line.Action != nil:
		label = line.Action.String()
	case label == "":
		label = "(payload)"
	}
	return fmt.Sprintf("%s[\"%s\"]", id, escape(truncate(label)))
}

func writeEdge(sb *strings.Builder, from, to, label string, dotted bool) {
	arrow := "-->"
	if dotted {
		arrow = "-.->"
	}
	if label != "" {
		arrow = fmt.Sprintf("-- \"%s\" -->", escape(label))
		if dotted {
			arrow = fmt.Sprintf("-. \"%s\" .->", escape(label))
		}
	}
	fmt.Fprintf(sb, "    %s %s %s\n", from, arrow, to)
}

func lineID(thread string, index int) string {
	return sanitizeID(fmt.Sprintf("%s_%d", thread, index))
}

func scriptNode(id string) string {
	return sanitizeID("script_" + id)
}

func truncate(s string) string {
	const max = 40
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, id)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
