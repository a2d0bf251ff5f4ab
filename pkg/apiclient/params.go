package apiclient

import (
	"encoding/json"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"
)

// Params holds query parameters for a proxied request. A key may carry one
// value or several. On the wire a single value is written as a bare string
// and multiple values as a list, matching the envelope format the
// optimization service expects; both forms are accepted when decoding.
type Params map[string][]string

// NewParams builds Params from a flat key/value map.
func NewParams(kv map[string]string) Params {
	if len(kv) == 0 {
		return nil
	}
	p := make(Params, len(kv))
	for k, v := range kv {
		p[k] = []string{v}
	}
	return p
}

// Set replaces the values for key with a single value.
func (p Params) Set(key, value string) {
	p[key] = []string{value}
}

// Add appends a value for key.
func (p Params) Add(key, value string) {
	p[key] = append(p[key], value)
}

// Values converts to url.Values for query-string encoding.
func (p Params) Values() url.Values {
	if len(p) == 0 {
		return nil
	}
	out := make(url.Values, len(p))
	for k, vs := range p {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// MarshalJSON writes single values as bare strings and multi values as lists.
func (p Params) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p))
	for k, vs := range p {
		switch len(vs) {
		case 0:
			continue
		case 1:
			out[k] = vs[0]
		default:
			out[k] = vs
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both bare-string and list values per key.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			out[k] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err != nil {
			return fmt.Errorf("param %q: expected string or list of strings", k)
		}
		out[k] = many
	}
	*p = out
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for request files.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		var single string
		if err := v.Decode(&single); err == nil {
			out[k] = []string{single}
			continue
		}
		var many []string
		if err := v.Decode(&many); err != nil {
			return fmt.Errorf("param %q: expected string or list of strings", k)
		}
		out[k] = many
	}
	*p = out
	return nil
}

// EncodedURL appends p to rawURL as an encoded query string, preserving any
// query already present.
func EncodedURL(rawURL string, p Params) (string, error) {
	if len(p) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, vs := range p {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
