// Package propstore resolves properties published by the host application,
// most importantly the optimization service's advertised port.
package propstore

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Store reads and publishes host properties. A property that was never set
// reads as the empty string.
type Store interface {
	Close() error
	Property(key string) (string, error)
	SetProperty(key, value string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	// EnvPrefix prefixes property keys in the env store.
	EnvPrefix string
	// PropertyTTL bounds how long a bbolt-published property stays readable.
	PropertyTTL time.Duration
	// CleanupInterval is the cadence for sweeping expired bbolt entries.
	CleanupInterval time.Duration
}

const (
	defaultPropertyTTL     = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

var (
	_ Store = (*Static)(nil)
	_ Store = (*Env)(nil)
)

// NewStore creates the configured property store backend. The "none" type
// returns a nil Store; callers treat that as having no discovery source at
// all, which makes the api client dial its fixed fallback port.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return nil, nil
	case "env":
		return NewEnv(opts.EnvPrefix), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt property store requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported property store type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.PropertyTTL <= 0 {
		opts.PropertyTTL = defaultPropertyTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// Static is a fixed in-memory property set, for tests and for embedding
// hosts that push properties programmatically.
type Static struct {
	mu    sync.RWMutex
	props map[string]string
}

// NewStatic builds a Static store seeded with props.
func NewStatic(props map[string]string) *Static {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return &Static{props: out}
}

func (s *Static) Close() error { return nil }

// Property returns the stored value for key.
func (s *Static) Property(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props[key], nil
}

// SetProperty stores value under key.
func (s *Static) SetProperty(key, value string) error {
	s.mu.Lock()
	s.props[key] = value
	s.mu.Unlock()
	return nil
}

// Env reads properties from environment variables, optionally prefixed.
type Env struct {
	prefix string
}

// NewEnv builds an Env store with the given key prefix.
func NewEnv(prefix string) *Env { return &Env{prefix: prefix} }

func (e *Env) Close() error { return nil }

// Property reads the environment variable for key.
func (e *Env) Property(key string) (string, error) {
	return os.Getenv(e.prefix + key), nil
}

// SetProperty publishes the property into this process's environment.
func (e *Env) SetProperty(key, value string) error {
	return os.Setenv(e.prefix+key, value)
}
