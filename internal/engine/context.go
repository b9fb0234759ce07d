package engine

import (
	"os"
	"regexp"
	"sort"
	"sync"

	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// ExecutionContext is the variable store shared by every step of a run.
// Lookups fall back to the process environment. It is safe for concurrent use.
type ExecutionContext struct {
	mu        sync.RWMutex
	vars      map[string]string
	lookupEnv func(string) (string, bool)
}

// NewExecutionContext creates an empty context backed by os.LookupEnv.
func NewExecutionContext() *ExecutionContext {
	return NewExecutionContextWith(nil)
}

// NewExecutionContextWith creates a context seeded with a copy of vars.
func NewExecutionContextWith(vars map[string]string) *ExecutionContext {
	seeded := make(map[string]string, len(vars))
	for key, value := range vars {
		seeded[key] = value
	}
	return &ExecutionContext{vars: seeded, lookupEnv: os.LookupEnv}
}

// Set stores value under key, replacing any previous value.
func (c *ExecutionContext) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[key] = value
}

// Get returns the value stored under key.
func (c *ExecutionContext) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.vars[key]
	return value, ok
}

// GetOrEnv returns the context value for key, else the environment variable.
func (c *ExecutionContext) GetOrEnv(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(key)
}

func (c *ExecutionContext) lookup(key string) (string, bool) {
	if value, ok := c.vars[key]; ok {
		return value, true
	}
	if c.lookupEnv != nil {
		return c.lookupEnv(key)
	}
	return "", false
}

// Snapshot returns a copy of the stored variables.
func (c *ExecutionContext) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.vars))
	for key, value := range c.vars {
		out[key] = value
	}
	return out
}

// Expand replaces every ${NAME} in template. If any placeholder is still
// present afterwards the whole expansion fails with an ExpansionError; a
// partially substituted string is never returned.
func (c *ExecutionContext) Expand(template string) (string, error) {
	c.mu.RLock()
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		if value, ok := c.lookup(name); ok {
			return value
		}
		return token
	})
	c.mu.RUnlock()

	remaining := placeholderPattern.FindAllStringSubmatch(expanded, -1)
	if len(remaining) == 0 {
		return expanded, nil
	}

	seen := make(map[string]struct{}, len(remaining))
	missing := make([]string, 0, len(remaining))
	for _, match := range remaining {
		if _, dup := seen[match[1]]; dup {
			continue
		}
		seen[match[1]] = struct{}{}
		missing = append(missing, match[1])
	}
	sort.Strings(missing)
	return "", batcherrors.NewExpansionError(template, missing)
}

// ExpandRequired expands template and annotates a failure with field.
func (c *ExecutionContext) ExpandRequired(template, field string) (string, error) {
	expanded, err := c.Expand(template)
	if err != nil {
		if expansionErr, ok := err.(*batcherrors.ExpansionError); ok {
			return "", expansionErr.WithField(field)
		}
		return "", err
	}
	return expanded, nil
}

// ExpandOptional expands template unless it is empty.
func (c *ExecutionContext) ExpandOptional(template, field string) (string, error) {
	if template == "" {
		return "", nil
	}
	return c.ExpandRequired(template, field)
}
