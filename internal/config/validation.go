package config

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hooksd/hooksd/internal/hook"
)

// handlerNamePattern constrains handler names.
var handlerNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Keys the config layer itself understands. Anything else at these
// levels is rejected; unknown keys inside a handler block pass through.
var (
	knownTopKeys        = []string{"version", "daemon", "handlers", "plugins"}
	knownDaemonKeys     = []string{"idle_timeout_seconds", "request_timeout_seconds", "max_request_bytes", "log_level", "input_validation"}
	knownValidationKeys = []string{"enabled", "strict_mode", "log_validation_errors"}
	knownPluginKeys     = []string{"name", "handlers"}
)

// Parse unmarshals raw YAML, validates it exhaustively, and returns the
// typed config with defaults applied for absent fields. On any
// validation problem it returns nil and a *ValidationErrors carrying
// every error found.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	b := &binder{cfg: NewDefaultConfig()}
	b.bind(raw)
	b.checkDuplicateNames()
	b.checkDuplicatePriorities()

	if len(b.errs) > 0 {
		sort.SliceStable(b.errs, func(i, j int) bool { return b.errs[i].Field < b.errs[j].Field })
		return nil, &ValidationErrors{Errors: b.errs}
	}
	return b.cfg, nil
}

// binder walks the raw document, accumulating every validation error
// instead of stopping at the first.
type binder struct {
	cfg  *Config
	errs []ValidationError
}

func (b *binder) addError(field, message string, value any, wrapped error) {
	b.errs = append(b.errs, ValidationError{Field: field, Message: message, Value: value, Wrapped: wrapped})
}

func (b *binder) bind(raw map[string]any) {
	for key := range raw {
		if !slices.Contains(knownTopKeys, key) {
			b.addError(key, "unknown top-level key", nil, ErrUnknownKey)
		}
	}

	if v, ok := raw["version"]; ok {
		b.bindVersion(v)
	}
	if v, ok := raw["daemon"]; ok {
		b.bindDaemon(v)
	}
	if v, ok := raw["handlers"]; ok {
		// The default handler set applies only when the file has no
		// handlers section at all.
		b.cfg.Handlers = map[hook.EventType]map[string]HandlerConfig{}
		b.bindHandlerSection("handlers", v, b.cfg.Handlers)
	}
	if v, ok := raw["plugins"]; ok {
		b.bindPlugins(v)
	}
}

func (b *binder) bindVersion(v any) {
	s, ok := v.(string)
	if !ok {
		b.addError("version", "must be a string", v, ErrTypeMismatch)
		return
	}
	if !strings.HasPrefix(s, "1.") {
		b.addError("version", fmt.Sprintf("unsupported version %q, this build accepts 1.x", s), s, ErrVersionMismatch)
		return
	}
	b.cfg.Version = s
}

func (b *binder) bindDaemon(v any) {
	section, ok := v.(map[string]any)
	if !ok {
		b.addError("daemon", "must be a mapping", v, ErrTypeMismatch)
		return
	}
	for key := range section {
		if !slices.Contains(knownDaemonKeys, key) {
			b.addError("daemon."+key, "unknown daemon key", nil, ErrUnknownKey)
		}
	}

	d := &b.cfg.Daemon
	if raw, ok := section["idle_timeout_seconds"]; ok {
		if n, ok := b.intField("daemon.idle_timeout_seconds", raw); ok {
			if n <= 0 {
				b.addError("daemon.idle_timeout_seconds", "must be positive", n, ErrTypeMismatch)
			} else {
				d.IdleTimeoutSeconds = n
			}
		}
	}
	if raw, ok := section["request_timeout_seconds"]; ok {
		if n, ok := b.intField("daemon.request_timeout_seconds", raw); ok {
			if n <= 0 {
				b.addError("daemon.request_timeout_seconds", "must be positive", n, ErrTypeMismatch)
			} else {
				d.RequestTimeoutSeconds = n
			}
		}
	}
	if raw, ok := section["max_request_bytes"]; ok {
		if n, ok := b.intField("daemon.max_request_bytes", raw); ok {
			if n <= 0 {
				b.addError("daemon.max_request_bytes", "must be positive", n, ErrTypeMismatch)
			} else {
				d.MaxRequestBytes = n
			}
		}
	}
	if raw, ok := section["log_level"]; ok {
		s, ok := raw.(string)
		if !ok {
			b.addError("daemon.log_level", "must be a string", raw, ErrTypeMismatch)
		} else if !slices.Contains(ValidLogLevels, s) {
			b.addError("daemon.log_level", fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels, ", ")), s, ErrUnknownLogLevel)
		} else {
			d.LogLevel = s
		}
	}
	if raw, ok := section["input_validation"]; ok {
		b.bindInputValidation(raw, &d.InputValidation)
	}
}

func (b *binder) bindInputValidation(v any, vc *ValidationConfig) {
	section, ok := v.(map[string]any)
	if !ok {
		b.addError("daemon.input_validation", "must be a mapping", v, ErrTypeMismatch)
		return
	}
	for key := range section {
		if !slices.Contains(knownValidationKeys, key) {
			b.addError("daemon.input_validation."+key, "unknown input_validation key", nil, ErrUnknownKey)
		}
	}
	if raw, ok := section["enabled"]; ok {
		if on, ok := b.boolField("daemon.input_validation.enabled", raw); ok {
			vc.Enabled = on
		}
	}
	if raw, ok := section["strict_mode"]; ok {
		if on, ok := b.boolField("daemon.input_validation.strict_mode", raw); ok {
			vc.StrictMode = on
		}
	}
	if raw, ok := section["log_validation_errors"]; ok {
		if on, ok := b.boolField("daemon.input_validation.log_validation_errors", raw); ok {
			vc.LogValidationErrors = on
		}
	}
}

// bindHandlerSection fills dst from a raw handlers mapping. fieldBase is
// the dotted path prefix used in error fields.
func (b *binder) bindHandlerSection(fieldBase string, v any, dst map[hook.EventType]map[string]HandlerConfig) {
	section, ok := v.(map[string]any)
	if !ok {
		b.addError(fieldBase, "must be a mapping of event type to handlers", v, ErrTypeMismatch)
		return
	}

	for eventName, rawHandlers := range section {
		eventField := fieldBase + "." + eventName
		evt := hook.EventType(eventName)
		if !hook.IsValidEventType(evt) {
			b.addError(eventField, fmt.Sprintf("unknown event type %q", eventName), eventName, ErrUnknownEventType)
			continue
		}

		byName, ok := rawHandlers.(map[string]any)
		if !ok {
			b.addError(eventField, "must be a mapping of handler name to settings", rawHandlers, ErrTypeMismatch)
			continue
		}

		for name, rawHC := range byName {
			handlerField := eventField + "." + name
			if !handlerNamePattern.MatchString(name) {
				b.addError(handlerField, "handler name must match ^[a-z][a-z0-9_]*$", name, ErrInvalidHandlerName)
				continue
			}
			hc, ok := b.bindHandler(handlerField, rawHC)
			if !ok {
				continue
			}
			if dst[evt] == nil {
				dst[evt] = make(map[string]HandlerConfig)
			}
			dst[evt][name] = hc
		}
	}
}

// bindHandler binds one handler block. Known keys are typed; everything
// else lands verbatim in Options for the handler's own consumption.
func (b *binder) bindHandler(field string, v any) (HandlerConfig, bool) {
	block, ok := v.(map[string]any)
	if !ok {
		b.addError(field, "must be a mapping", v, ErrTypeMismatch)
		return HandlerConfig{}, false
	}

	hc := HandlerConfig{Enabled: true}
	valid := true

	if raw, ok := block["enabled"]; ok {
		if on, ok := b.boolField(field+".enabled", raw); ok {
			hc.Enabled = on
		} else {
			valid = false
		}
	}
	if raw, ok := block["priority"]; ok {
		if n, ok := b.intField(field+".priority", raw); !ok {
			valid = false
		} else if n < PriorityMin || n > PriorityMax {
			b.addError(field+".priority", fmt.Sprintf("must be in [%d, %d]", PriorityMin, PriorityMax), n, ErrPriorityOutOfRange)
			valid = false
		} else {
			hc.Priority = n
		}
	} else {
		b.addError(field+".priority", "priority is required", nil, ErrPriorityOutOfRange)
		valid = false
	}
	if raw, ok := block["terminal"]; ok {
		if on, ok := b.boolField(field+".terminal", raw); ok {
			hc.Terminal = &on
		} else {
			valid = false
		}
	}

	for key, val := range block {
		switch key {
		case "enabled", "priority", "terminal":
			continue
		}
		if hc.Options == nil {
			hc.Options = make(map[string]any)
		}
		hc.Options[key] = val
	}
	return hc, valid
}

func (b *binder) bindPlugins(v any) {
	list, ok := v.([]any)
	if !ok {
		b.addError("plugins", "must be a sequence", v, ErrTypeMismatch)
		return
	}
	for i, rawPlugin := range list {
		field := fmt.Sprintf("plugins[%d]", i)
		block, ok := rawPlugin.(map[string]any)
		if !ok {
			b.addError(field, "must be a mapping", rawPlugin, ErrTypeMismatch)
			continue
		}
		for key := range block {
			if !slices.Contains(knownPluginKeys, key) {
				b.addError(field+"."+key, "unknown plugin key", nil, ErrUnknownKey)
			}
		}

		p := PluginConfig{Handlers: map[hook.EventType]map[string]HandlerConfig{}}
		if raw, ok := block["name"]; ok {
			if s, ok := raw.(string); ok {
				p.Name = s
			} else {
				b.addError(field+".name", "must be a string", raw, ErrTypeMismatch)
			}
		}
		if raw, ok := block["handlers"]; ok {
			b.bindHandlerSection(field+".handlers", raw, p.Handlers)
		}
		b.cfg.Plugins = append(b.cfg.Plugins, p)
	}
}

// checkDuplicateNames rejects a handler name defined in more than one
// section (base or plugin) for the same event type. Names are unique
// within an event; without this a later section would silently shadow
// an earlier one when the merged map is built.
func (b *binder) checkDuplicateNames() {
	seen := make(map[hook.EventType]map[string]string)

	check := func(label string, src map[hook.EventType]map[string]HandlerConfig) {
		for evt, byName := range src {
			names := make([]string, 0, len(byName))
			for name := range byName {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				if seen[evt] == nil {
					seen[evt] = make(map[string]string)
				}
				if prev, dup := seen[evt][name]; dup {
					b.addError(
						fmt.Sprintf("%s.%s.%s", label, evt, name),
						fmt.Sprintf("handler %q already defined under %s", name, prev),
						name,
						ErrDuplicateHandlerName,
					)
					continue
				}
				seen[evt][name] = label
			}
		}
	}

	check("handlers", b.cfg.Handlers)
	for i, p := range b.cfg.Plugins {
		check(fmt.Sprintf("plugins[%d].handlers", i), p.Handlers)
	}
}

// checkDuplicatePriorities rejects two enabled handlers sharing one
// priority within an event type, across the base section and every
// plugin. Ordering ties are unspecified, so they are config errors.
func (b *binder) checkDuplicatePriorities() {
	seen := make(map[hook.EventType]map[int]string)

	check := func(src map[hook.EventType]map[string]HandlerConfig) {
		for evt, byName := range src {
			// Stable iteration so repeated loads report the same pair.
			names := make([]string, 0, len(byName))
			for name := range byName {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				hc := byName[name]
				if !hc.Enabled {
					continue
				}
				if seen[evt] == nil {
					seen[evt] = make(map[int]string)
				}
				if prev, dup := seen[evt][hc.Priority]; dup {
					b.addError(
						fmt.Sprintf("handlers.%s.%s.priority", evt, name),
						fmt.Sprintf("priority %d already used by handler %q", hc.Priority, prev),
						hc.Priority,
						ErrDuplicatePriority,
					)
					continue
				}
				seen[evt][hc.Priority] = name
			}
		}
	}

	check(b.cfg.Handlers)
	for _, p := range b.cfg.Plugins {
		check(p.Handlers)
	}
}

func (b *binder) intField(field string, v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		b.addError(field, "must be an integer", v, ErrTypeMismatch)
		return 0, false
	}
}

func (b *binder) boolField(field string, v any) (bool, bool) {
	if on, ok := v.(bool); ok {
		return on, true
	}
	b.addError(field, "must be a boolean", v, ErrTypeMismatch)
	return false, false
}
