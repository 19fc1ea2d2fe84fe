// Package cli provides the Cobra command tree for the hooksd binary.
// This file is the composition root: the only place where the config,
// handler registry, validator, and dispatcher are instantiated and
// wired together. Commands access them through the Dependencies struct.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hooksd/hooksd/internal/config"
	"github.com/hooksd/hooksd/internal/hook"
	"github.com/hooksd/hooksd/internal/hook/handlers"
	"github.com/hooksd/hooksd/internal/hook/validator"
)

// Dependencies holds the wired collaborators for one project.
type Dependencies struct {
	ProjectRoot string
	Config      *config.Config
	Registry    *hook.Registry
	Session     *hook.SessionStore
	Dispatcher  *hook.Dispatcher
	Validator   *validator.Validator
}

// buildDependencies loads the project config and constructs the full
// dispatch pipeline. Config load or handler construction failures are
// config errors; callers map them to exit code 2.
func buildDependencies(projectRoot string) (*Dependencies, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	return wireDependencies(projectRoot, cfg)
}

// wireDependencies constructs the pipeline from an already loaded
// config. The dispatcher captures slog.Default() here, so install the
// intended log sink before calling.
func wireDependencies(projectRoot string, cfg *config.Config) (*Dependencies, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	session := hook.NewSessionStore()
	return &Dependencies{
		ProjectRoot: projectRoot,
		Config:      cfg,
		Registry:    registry,
		Session:     session,
		Dispatcher:  hook.NewDispatcher(registry, session, slog.Default()),
		Validator:   validator.New(),
	}, nil
}

// buildRegistry instantiates every enabled handler from the config and
// freezes the registry.
func buildRegistry(cfg *config.Config) (*hook.Registry, error) {
	registry := hook.NewRegistry()

	for event, byName := range cfg.EnabledHandlers() {
		for name, hc := range byName {
			field := fmt.Sprintf("handlers.%s.%s", event, name)
			spec, ok := handlers.Lookup(name)
			if !ok {
				return nil, &config.ValidationError{
					Field:   field,
					Message: "no handler implementation with this name",
					Value:   name,
					Wrapped: config.ErrUnknownHandler,
				}
			}
			if spec.Event != event {
				return nil, &config.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("handler serves %s, not %s", spec.Event, event),
					Value:   name,
					Wrapped: config.ErrUnknownHandler,
				}
			}

			h, err := handlers.Build(name, hc.Options)
			if err != nil {
				return nil, fmt.Errorf("config: build handler %q: %w", name, err)
			}

			terminal := spec.DefaultTerminal
			if hc.Terminal != nil {
				terminal = *hc.Terminal
			}
			priority := hc.Priority
			if priority == 0 {
				priority = spec.DefaultPriority
			}
			if err := registry.Register(hook.Registration{
				Handler:  h,
				Priority: priority,
				Terminal: terminal,
			}); err != nil {
				return nil, err
			}
		}
	}

	registry.Freeze()
	return registry, nil
}

// projectRoot resolves the project the command operates on: the current
// working directory.
func projectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}
