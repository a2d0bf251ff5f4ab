// Package respcache caches successful metadata responses on disk so repeat
// lookups skip the service and the network entirely.
package respcache

import (
	"fmt"
	"strings"
	"time"
)

// Cache stores response payloads keyed by request fingerprint.
type Cache interface {
	Close() error
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Options controls retention characteristics for concrete cache implementations.
type Options struct {
	ResponseTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultResponseTTL     = 6 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewCache creates the configured cache backend.
func NewCache(typ, path string, opts Options) (Cache, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopCache{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt cache requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ResponseTTL <= 0 {
		opts.ResponseTTL = defaultResponseTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopCache struct{}

func (noopCache) Close() error                     { return nil }
func (noopCache) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(string, []byte) error         { return nil }
