package apiclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/httpclient"
)

// PropertyStore resolves properties published by the host application, such
// as the advertised service port. A property that is not set resolves to the
// empty string. Implementations live in pkg/propstore; hosts may supply
// their own.
type PropertyStore interface {
	Property(key string) (string, error)
}

// HTTPClient issues the direct fallback request when the optimization
// service cannot be reached.
type HTTPClient = httpclient.Client

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultPortKey        = "TMDB_OPTIMIZATION_SERVICE_PORT"
	DefaultServiceHost    = "127.0.0.1"
	DefaultFallbackPort   = 56789
	DefaultServiceTimeout = 35 * time.Second
	DefaultHTTPTimeout    = 30 * time.Second
)

// Config configures a Client. The zero value works once defaults are
// applied; all collaborators are optional.
type Config struct {
	// Store resolves the advertised service port. When nil, discovery is
	// skipped entirely and the client dials FallbackPort. When set, a
	// missing or malformed port property is a discovery error, not a
	// fallback.
	Store PropertyStore

	// PortKey is the property holding the service port.
	PortKey string

	// ServiceHost is the address the service listens on.
	ServiceHost string

	// FallbackPort is dialed when no property store is configured.
	FallbackPort int

	// ServiceTimeout bounds one full socket exchange. The default exceeds
	// the service's own per-request timeout.
	ServiceTimeout time.Duration

	// HTTPTimeout bounds the direct fallback request.
	HTTPTimeout time.Duration

	// HTTP issues the direct fallback request. Defaults to a resty-backed
	// client using HTTPTimeout.
	HTTP HTTPClient

	// Logger receives request traces and fallback warnings. Nil disables
	// logging.
	Logger Logger

	// Headers seeds the header set sent with every request.
	Headers map[string]string

	// DNSSettings seeds the resolver overrides forwarded to the service.
	DNSSettings map[string]string
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.PortKey == "" {
		c.PortKey = DefaultPortKey
	}
	if c.ServiceHost == "" {
		c.ServiceHost = DefaultServiceHost
	}
	if c.FallbackPort == 0 {
		c.FallbackPort = DefaultFallbackPort
	}
	if c.ServiceTimeout == 0 {
		c.ServiceTimeout = DefaultServiceTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
}

// Validate checks field ranges after defaults are applied.
func (c *Config) Validate() error {
	if c.FallbackPort < 1 || c.FallbackPort > 65535 {
		return fmt.Errorf("fallback port %d out of range", c.FallbackPort)
	}
	if c.ServiceTimeout <= 0 {
		return errors.New("service timeout must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	return nil
}
