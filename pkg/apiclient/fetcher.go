package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Fetcher is the retrieval surface scraper code programs against. FetchJSON
// returns def instead of an error when def is non-nil and both the service
// and the direct request fail.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, params Params, def json.RawMessage) (json.RawMessage, error)
	FetchText(ctx context.Context, rawURL string, params Params) (string, error)
}

var _ Fetcher = (*Client)(nil)

// FetchJSON retrieves rawURL and returns the response decoded as JSON. The
// service is tried first with the client's stored headers; if it cannot
// answer, the URL is fetched directly. A service result that succeeds but
// carries no decodable payload is an error, not a fallback trigger.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, params Params, def json.RawMessage) (json.RawMessage, error) {
	id := c.traceRequest(rawURL, params)

	res, svcErr := c.serviceFetch(ctx, rawURL, params)
	if svcErr == nil {
		return res.JSONValue()
	}
	c.warnFallback(id, svcErr)

	body, err := c.fetchDirect(ctx, rawURL, params)
	if err == nil {
		if trimmed := bytes.TrimSpace(body); json.Valid(trimmed) {
			return json.RawMessage(trimmed), nil
		}
		err = fmt.Errorf("%w: direct response is not JSON", ErrDecode)
	}
	if def != nil {
		return def, nil
	}
	return nil, fmt.Errorf("direct request failed: %w", err)
}

// FetchText retrieves rawURL and returns the raw response body.
func (c *Client) FetchText(ctx context.Context, rawURL string, params Params) (string, error) {
	id := c.traceRequest(rawURL, params)

	res, svcErr := c.serviceFetch(ctx, rawURL, params)
	if svcErr == nil {
		return res.Text, nil
	}
	c.warnFallback(id, svcErr)

	body, err := c.fetchDirect(ctx, rawURL, params)
	if err != nil {
		return "", fmt.Errorf("direct request failed: %w", err)
	}
	return string(body), nil
}

// serviceFetch runs one request through the service. A result entry carrying
// a service-side error is a failure like any transport error.
func (c *Client) serviceFetch(ctx context.Context, rawURL string, params Params) (Result, error) {
	res, err := c.Send(ctx, Request{URL: rawURL, Params: params, Headers: c.Headers()}, nil)
	if err != nil {
		return Result{}, err
	}
	if res.Err != "" {
		return Result{}, &ServiceError{Message: res.Err}
	}
	return res, nil
}

// fetchDirect issues the fallback GET. Success is any final status below
// 400; everything else comes back as a StatusError with a condensed body.
func (c *Client) fetchDirect(ctx context.Context, rawURL string, params Params) ([]byte, error) {
	resp, err := c.cfg.HTTP.Get(ctx, rawURL, params.Values(), c.Headers())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, &StatusError{Code: resp.StatusCode(), Body: condenseBody(resp.Body())}
	}
	return resp.Body(), nil
}

// traceRequest logs the outgoing call and returns a correlation id tying the
// service attempt and any fallback together.
func (c *Client) traceRequest(rawURL string, params Params) string {
	id := uuid.NewString()

	fields := map[string]any{"request_id": id, "url": rawURL}
	if logURL, err := EncodedURL(rawURL, params); err == nil {
		fields["url"] = logURL
	}
	if headers := c.Headers(); len(headers) > 0 {
		fields["headers"] = headers
	}
	c.cfg.Logger.DebugObj("calling api url", "request", fields)
	return id
}

func (c *Client) warnFallback(id string, err error) {
	c.cfg.Logger.WarnObj("service unavailable, falling back to direct request", "fallback", map[string]any{
		"request_id": id,
		"error":      err.Error(),
	})
}
