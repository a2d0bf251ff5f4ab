package cmd

import (
	"fmt"
	"strings"

	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/config"
	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/logger"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/propstore"
)

// loadConfig loads configuration and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if storeType != "" {
		cfg.StoreType = storeType
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if profilesFile != "" {
		cfg.ProfilesFile = profilesFile
	}
	return cfg, nil
}

// newClient wires the property store and the api client from cfg. The
// returned closer releases the store.
func newClient(cfg *config.Config) (*apiclient.Client, func(), error) {
	store, err := propstore.NewStore(cfg.StoreType, cfg.StorePath, propstore.Options{
		EnvPrefix:   cfg.StoreEnvPrefix,
		PropertyTTL: cfg.PropertyTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open property store: %w", err)
	}

	cc := apiclient.Config{
		PortKey:        cfg.ServicePortKey,
		ServiceHost:    cfg.ServiceHost,
		FallbackPort:   cfg.ServiceFallbackPort,
		ServiceTimeout: cfg.ServiceTimeout,
		HTTPTimeout:    cfg.HTTPTimeout,
		Logger:         logger.Zap{},
	}
	if store != nil {
		cc.Store = store
	}

	client, err := apiclient.NewClient(cc)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	closer := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return client, closer, nil
}

// parseParams collects repeated key=value entries into query parameters.
// Repeating a key adds another value for it.
func parseParams(entries []string) (apiclient.Params, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	params := apiclient.Params{}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed param %q, want key=value", entry)
		}
		params.Add(key, value)
	}
	return params, nil
}

// parseHeaders collects repeated key=value entries into a header map.
func parseHeaders(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed header %q, want key=value", entry)
		}
		headers[key] = value
	}
	return headers, nil
}
