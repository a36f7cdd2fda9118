// Package fs loads scripts from a directory of YAML files and reloads them
// when the files change.
//
// A document describes one script:
//
//	id: colors
//	threads:
//	  default:
//	    - ask: "Pick a color:"
//	      key: color
//	      options:
//	        - pattern: red
//	          action: red_thread
//	        - default: true
//	          action: repeat
//	  red_thread:
//	    - say: ["Red it is.", "Red, nice."]
//	    - child: profile
//	      key: profile
//
// Hooks cannot be expressed in YAML; register them with WithHooks.
package fs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/script"
)

// Loader is a ports.ScriptRegistry backed by a directory of YAML files.
type Loader struct {
	dir      string
	registry *memory.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	hooks map[string][]func(*script.Builder)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for reload reports.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithHooks registers fn to run on the builder of scriptID before every build.
func WithHooks(scriptID string, fn func(*script.Builder)) Option {
	return func(l *Loader) {
		l.hooks[scriptID] = append(l.hooks[scriptID], fn)
	}
}

// NewLoader creates a loader for dir and performs the initial load.
func NewLoader(dir string, opts ...Option) (*Loader, error) {
	l := &Loader{
		dir:      dir,
		registry: memory.NewRegistry(),
		logger:   slog.Default(),
		hooks:    make(map[string][]func(*script.Builder)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the watched directory.
func (l *Loader) Dir() string { return l.dir }

// Script implements ports.ScriptRegistry.
func (l *Loader) Script(id string) (*script.Script, error) { return l.registry.Script(id) }

// Scripts implements ports.ScriptRegistry.
func (l *Loader) Scripts() []string { return l.registry.Scripts() }

func isScriptFile(name string) bool {
	ext := filepath.Ext(name)
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(filepath.Base(name), ".")
}

// Load reads every YAML file in the directory. The whole set is validated,
// cross-script references included, before it replaces the loaded scripts;
// on error the previous set stays in place.
func (l *Loader) Load() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read script dir %q: %w", l.dir, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		scripts []*script.Script
		errs    []error
		seen    = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		s, err := l.loadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %q: %w", path, err))
			continue
		}
		if prev, dup := seen[s.ID()]; dup {
			errs = append(errs, fmt.Errorf("load %q: script %q already defined in %q", path, s.ID(), prev))
			continue
		}
		seen[s.ID()] = path
		scripts = append(scripts, s)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	candidate := memory.NewRegistry(scripts...)
	if err := candidate.Validate(); err != nil {
		return err
	}
	l.registry.Replace(scripts...)
	l.logger.Debug("scripts loaded", "dir", l.dir, "count", len(scripts))
	return nil
}

func (l *Loader) loadFile(path string) (*script.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, id, func(b *script.Builder) {
		for _, fn := range l.hooksFor(b) {
			fn(b)
		}
	})
}

func (l *Loader) hooksFor(b *script.Builder) []func(*script.Builder) {
	return l.hooks[b.ID()]
}
