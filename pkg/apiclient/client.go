// Package apiclient talks to the local TMDb optimization service and falls
// back to direct HTTP requests when the service is unavailable.
//
// The service is a background daemon that proxies metadata API calls through
// resolver overrides. It listens on a loopback TCP port it advertises
// through a host property; each connection carries one JSON frame in and one
// JSON reply out, delimited by the service closing the connection.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/httpclient"
)

// Client is the API access helper. It forwards requests through the
// optimization service and degrades to direct HTTP when the service cannot
// answer. Safe for concurrent use.
type Client struct {
	cfg Config

	mu          sync.RWMutex
	headers     map[string]string
	dnsSettings map[string]string

	// dial is swapped out in tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewClient builds a Client from cfg. Missing collaborators get default
// implementations; a nil Store disables port discovery.
func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("apiclient config: %w", err)
	}
	if cfg.HTTP == nil {
		cfg.HTTP = httpclient.NewRestyClient(cfg.HTTPTimeout)
	}
	cfg.Logger = ensureLogger(cfg.Logger)

	c := &Client{
		cfg:         cfg,
		headers:     copyMap(cfg.Headers),
		dnsSettings: copyMap(cfg.DNSSettings),
	}
	c.dial = dialTCP
	return c, nil
}

// SetHeaders replaces the header set sent with every request. Previous
// entries are discarded.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = copyMap(headers)
	c.mu.Unlock()
}

// SetDNSSettings replaces the resolver overrides forwarded to the service.
// Previous entries are discarded.
func (c *Client) SetDNSSettings(settings map[string]string) {
	c.mu.Lock()
	c.dnsSettings = copyMap(settings)
	c.mu.Unlock()
}

// Headers returns a copy of the current header set.
func (c *Client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.headers)
}

// DNSSettings returns a copy of the current resolver overrides.
func (c *Client) DNSSettings() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.dnsSettings)
}

// ServicePort resolves the service port. With no property store configured
// the fixed fallback port is returned; with a store, an unset or malformed
// port property is ErrPortDiscovery, never the fallback.
func (c *Client) ServicePort() (int, error) {
	if c.cfg.Store == nil {
		return c.cfg.FallbackPort, nil
	}

	raw, err := c.cfg.Store.Property(c.cfg.PortKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPortDiscovery, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: property %q is not set", ErrPortDiscovery, c.cfg.PortKey)
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: property %q holds %q, not a port", ErrPortDiscovery, c.cfg.PortKey, raw)
	}
	return port, nil
}

// Send forwards one request through the service and returns its result. A
// nil or empty dns map sends the client's stored resolver overrides.
func (c *Client) Send(ctx context.Context, req Request, dns map[string]string) (Result, error) {
	results, err := c.exchange(ctx, []Request{req}, dns, false)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// SendBatch forwards several requests in one socket exchange. Results come
// back in request order.
func (c *Client) SendBatch(ctx context.Context, reqs []Request, dns map[string]string) ([]Result, error) {
	return c.exchange(ctx, reqs, dns, true)
}

func (c *Client) exchange(ctx context.Context, reqs []Request, dns map[string]string, batch bool) ([]Result, error) {
	port, err := c.ServicePort()
	if err != nil {
		return nil, err
	}

	if len(dns) == 0 {
		dns = c.DNSSettings()
	}
	payload, err := json.Marshal(newFrame(reqs, dns))
	if err != nil {
		return nil, fmt.Errorf("encode request frame: %w", err)
	}

	addr := net.JoinHostPort(c.cfg.ServiceHost, strconv.Itoa(port))
	raw, err := c.roundTrip(ctx, addr, payload)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w (service %s)", ErrEmptyResponse, addr)
	}
	return decodeResults(raw, batch)
}

// roundTrip runs one connect-write-read cycle. The service delimits its
// reply by closing the connection, so the read runs until EOF. One
// connection per call; never reused.
func (c *Client) roundTrip(ctx context.Context, addr string, payload []byte) ([]byte, error) {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.cfg.ServiceTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set deadline on %s: %v", ErrTransport, addr, err)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write to %s: %v", ErrTransport, addr, err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: read from %s: %v", ErrTransport, addr, err)
	}
	return raw, nil
}

func dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
