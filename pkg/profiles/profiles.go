// Package profiles holds named upstream API profiles (YAML/JSON) so tools
// can address endpoints by id instead of spelling out URLs, headers, and
// default parameters everywhere.
package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
)

const (
	// FormatJSON marks endpoints answering with JSON documents.
	FormatJSON = "json"
	// FormatText marks endpoints answering with plain text.
	FormatText = "text"
)

// Profile describes one upstream metadata API.
type Profile struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	ResponseFormat string            `json:"response_format" yaml:"response_format"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	DefaultParams  map[string]string `json:"default_params" yaml:"default_params"`
}

// configFile represents the structure of the profiles file.
type configFile struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry materializes profile definitions loaded from config files.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	idx      map[string]Profile
}

// LoadRegistry loads the profile registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profiles file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Profiles) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}

	reg := &Registry{
		profiles: make([]Profile, len(fileReg.Profiles)),
		idx:      make(map[string]Profile, len(fileReg.Profiles)),
	}

	for i := range fileReg.Profiles {
		p := sanitizeProfile(fileReg.Profiles[i])
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		reg.profiles[i] = p
		reg.idx[p.ID] = p
	}

	return reg, nil
}

// parseRegistry attempts to decode the profiles file content.
func parseRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("profiles file format not recognized (expected YAML or JSON)")
}

// sanitizeProfile trims and normalizes profile fields.
func sanitizeProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.ResponseFormat = strings.ToLower(strings.TrimSpace(p.ResponseFormat))

	if p.ResponseFormat == "" {
		p.ResponseFormat = FormatJSON
	}
	if p.Headers == nil {
		p.Headers = map[string]string{}
	}
	if p.DefaultParams == nil {
		p.DefaultParams = map[string]string{}
	}

	return p
}

// validateProfile checks that required fields are present.
func validateProfile(p Profile) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for profile %q", p.ID)
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required for profile %q", p.ID)
	}
	if p.ResponseFormat != FormatJSON && p.ResponseFormat != FormatText {
		return fmt.Errorf("response_format %q for profile %q (expected %s or %s)", p.ResponseFormat, p.ID, FormatJSON, FormatText)
	}
	return nil
}

// ByID returns the profile for the given id.
func (r *Registry) ByID(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// All returns all loaded profiles.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// ResolveURL joins an endpoint path onto the profile's base URL. Absolute
// URLs pass through untouched.
func (p Profile) ResolveURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return p.BaseURL
	}
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return p.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// RequestParams merges the profile's default parameters with extra ones;
// extra values win.
func (p Profile) RequestParams(extra apiclient.Params) apiclient.Params {
	if len(p.DefaultParams) == 0 && len(extra) == 0 {
		return nil
	}

	out := apiclient.NewParams(p.DefaultParams)
	if out == nil {
		out = apiclient.Params{}
	}
	for k, vs := range extra {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
