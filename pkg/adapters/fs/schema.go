package fs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned for YAML that does not describe a script.
var ErrInvalidDocument = errors.New("invalid script document")

type scriptDoc struct {
	ID      string               `yaml:"id"`
	Threads map[string][]lineDoc `yaml:"threads"`
}

// lineDoc is one YAML line. say accepts a string or a list of alternatives.
type lineDoc struct {
	Say        []string    `yaml:"say"`
	Ask        string      `yaml:"ask"`
	Key        string      `yaml:"key"`
	Options    []optionDoc `yaml:"options"`
	Payload    any         `yaml:"payload"`
	Action     string      `yaml:"action"`
	Child      string      `yaml:"child"`
	GotoDialog string      `yaml:"goto_dialog"`
	Thread     string      `yaml:"thread"`
}

type optionDoc struct {
	Pattern    string `yaml:"pattern"`
	Type       string `yaml:"type"`
	Default    bool   `yaml:"default"`
	Action     string `yaml:"action"`
	Child      string `yaml:"child"`
	Key        string `yaml:"key"`
	GotoDialog string `yaml:"goto_dialog"`
	Thread     string `yaml:"thread"`
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Parse builds a script from a YAML document. fallbackID is used when the
// document has no id field. configure, if set, may add Go hooks before Build.
func Parse(data []byte, fallbackID string, configure func(*script.Builder)) (*script.Script, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc scriptDoc
	if err := decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.ID == "" {
		doc.ID = fallbackID
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}

	b := script.New(doc.ID)
	for _, thread := range threadOrder(&root, doc.Threads) {
		b.Thread(thread)
		for i, line := range doc.Threads[thread] {
			if err := addLine(b, thread, line); err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidDocument, thread, i, err)
			}
		}
	}
	if configure != nil {
		configure(b)
	}
	return b.Build()
}

// threadOrder returns thread names in document order. Decoding into a map
// loses it, so the keys are read back from the node tree.
func threadOrder(root *yaml.Node, threads map[string][]lineDoc) []string {
	var order []string
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Content); i += 2 {
			if doc.Content[i].Value != "threads" || doc.Content[i+1].Kind != yaml.MappingNode {
				continue
			}
			m := doc.Content[i+1]
			for j := 0; j+1 < len(m.Content); j += 2 {
				order = append(order, m.Content[j].Value)
			}
		}
	}
	if len(order) != len(threads) {
		order = order[:0]
		for name := range threads {
			order = append(order, name)
		}
		slices.Sort(order)
		order = defaultFirst(order)
	}
	return order
}

func addLine(b *script.Builder, thread string, l lineDoc) error {
	if l.Ask != "" {
		if len(l.Say) > 0 || l.Action != "" || l.Child != "" || l.GotoDialog != "" {
			return errors.New("ask cannot be combined with say or an action")
		}
		branches := make([]script.Branch, 0, len(l.Options))
		for i, o := range l.Options {
			br, err := o.branch()
			if err != nil {
				return fmt.Errorf("option %d: %w", i, err)
			}
			branches = append(branches, br)
		}
		b.AddQuestion(thread, script.Text(l.Ask).WithPayload(l.Payload), l.Key, branches...)
		return nil
	}
	if len(l.Options) > 0 {
		return errors.New("options require ask")
	}

	m := script.Text(l.Say...).WithPayload(l.Payload)
	if l.Action != "" || l.Child != "" || l.GotoDialog != "" {
		a, err := resolve(l.Action, l.Child, l.Key, l.GotoDialog, l.Thread)
		if err != nil {
			return err
		}
		m = m.WithAction(a)
	}
	b.AddMessage(thread, m)
	return nil
}

func (o optionDoc) branch() (script.Branch, error) {
	a, err := resolve(o.Action, o.Child, o.Key, o.GotoDialog, o.Thread)
	if err != nil {
		return script.Branch{}, err
	}
	if o.Default {
		return script.Default(a), nil
	}
	switch script.MatchType(o.Type) {
	case "", script.MatchString:
		return script.Match(o.Pattern, a), nil
	case script.MatchRegex:
		return script.MatchRegexp(o.Pattern, a), nil
	}
	return script.Branch{}, fmt.Errorf("unknown match type %q", o.Type)
}

// resolve turns the YAML action fields into an Action. child and goto_dialog
// are shorthands for the execute_script and goto_dialog keywords.
func resolve(word, child, key, gotoDialog, thread string) (script.Action, error) {
	switch {
	case child != "" && gotoDialog != "":
		return script.Action{}, errors.New("child and goto_dialog are exclusive")
	case child != "":
		return script.ExecuteScript(child, key).AtThread(thread), nil
	case gotoDialog != "":
		return script.GotoDialog(gotoDialog).AtThread(thread), nil
	}
	a := script.ParseAction(word)
	switch a.Kind {
	case script.ActionExecuteScript, script.ActionGotoDialog:
		return script.Action{}, fmt.Errorf("%s needs a target script, use child or goto_dialog", a.Kind)
	case script.ActionGoto:
		if thread != "" {
			return script.Action{}, errors.New("thread only applies to child and goto_dialog")
		}
	}
	return a, nil
}

// defaultFirst keeps listings stable with the entry thread on top.
func defaultFirst(threads []string) []string {
	i := slices.Index(threads, domain.DefaultThread)
	if i <= 0 {
		return threads
	}
	out := append([]string{domain.DefaultThread}, threads[:i]...)
	return append(out, threads[i+1:]...)
}
