package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request describes one HTTP-style request forwarded to the optimization
// service.
type Request struct {
	URL     string            `json:"url" yaml:"url"`
	Params  Params            `json:"params,omitempty" yaml:"params,omitempty"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

// frame is the on-wire envelope for one socket exchange. The service reads
// exactly one frame per connection and answers with a JSON list of results.
type frame struct {
	Requests    []Request         `json:"requests"`
	DNSSettings map[string]string `json:"dns_settings"`
}

// newFrame normalizes nil maps so the wire always carries objects, never
// JSON null.
func newFrame(reqs []Request, dns map[string]string) frame {
	out := make([]Request, len(reqs))
	for i, r := range reqs {
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
		out[i] = r
	}
	if dns == nil {
		dns = map[string]string{}
	}
	return frame{Requests: out, DNSSettings: dns}
}

// Result is one response entry from the service.
type Result struct {
	Text   string          `json:"text,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty"`
	Status int             `json:"status,omitempty"`
	Err    string          `json:"error,omitempty"`
}

// JSONValue returns the decoded payload of a result: the json field when the
// service supplied one, else the text field parsed as JSON. Absent text
// decodes as an empty object.
func (r Result) JSONValue() (json.RawMessage, error) {
	if j := bytes.TrimSpace(r.JSON); len(j) > 0 && !bytes.Equal(j, []byte("null")) {
		return r.JSON, nil
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: result text is not JSON", ErrDecode)
	}
	return json.RawMessage(text), nil
}

// decodeResults parses a raw service reply. A single-request exchange is
// answered with a one-element list that gets unwrapped by the caller; any
// other length is a protocol violation. A bare object reply is accepted for
// either shape.
func decodeResults(raw []byte, batch bool) ([]Result, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return nil, ErrEmptyResponse
	case trimmed[0] == '[':
		var list []Result
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if !batch && len(list) != 1 {
			return nil, fmt.Errorf("%w: expected a single result, got %d", ErrDecode, len(list))
		}
		return list, nil
	case trimmed[0] == '{':
		var single Result
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return []Result{single}, nil
	default:
		return nil, fmt.Errorf("%w: not a JSON object or list", ErrDecode)
	}
}
