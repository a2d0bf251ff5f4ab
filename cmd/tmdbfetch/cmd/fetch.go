package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/logger"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/profiles"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/respcache"
)

var (
	fetchParams  []string
	fetchHeaders []string
	fetchProfile string
	fetchDefault string
	fetchText    bool
	fetchCache   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url|endpoint>",
	Short: "Fetch one URL through the optimization service",
	Long: "Fetch one URL through the optimization service, falling back to a direct\n" +
		"HTTP request when the service is unreachable. With --profile the argument\n" +
		"may be an endpoint path resolved against the profile's base URL.",
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringArrayVar(&fetchParams, "param", nil, "query parameter key=value (repeatable)")
	fetchCmd.Flags().StringArrayVar(&fetchHeaders, "header", nil, "request header key=value (repeatable)")
	fetchCmd.Flags().StringVar(&fetchProfile, "profile", "", "API profile id from the profiles file")
	fetchCmd.Flags().StringVar(&fetchDefault, "default", "", "JSON document to print when every fetch path fails")
	fetchCmd.Flags().BoolVar(&fetchText, "text", false, "print the raw response body instead of JSON")
	fetchCmd.Flags().BoolVar(&fetchCache, "cache", false, "serve repeated requests from the response cache")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tmdbfetch fetch: %w", err)
	}
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("tmdbfetch fetch: init logger: %w", err)
	}
	defer logger.Close()

	params, err := parseParams(fetchParams)
	if err != nil {
		return fmt.Errorf("tmdbfetch fetch: %w", err)
	}
	headers, err := parseHeaders(fetchHeaders)
	if err != nil {
		return fmt.Errorf("tmdbfetch fetch: %w", err)
	}

	target := args[0]
	asText := fetchText

	if fetchProfile != "" {
		reg, err := profiles.LoadRegistry(cfg.ProfilesFile)
		if err != nil {
			return fmt.Errorf("tmdbfetch fetch: %w", err)
		}
		prof, ok := reg.ByID(fetchProfile)
		if !ok {
			return fmt.Errorf("tmdbfetch fetch: unknown profile %q", fetchProfile)
		}
		target = prof.ResolveURL(target)
		params = prof.RequestParams(params)
		headers = mergeHeaders(prof.Headers, headers)
		if prof.ResponseFormat == profiles.FormatText {
			asText = true
		}
	}

	client, closeStore, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("tmdbfetch fetch: %w", err)
	}
	defer closeStore()

	if len(headers) > 0 {
		client.SetHeaders(headers)
	}

	var fetcher apiclient.Fetcher = client
	if fetchCache {
		cacheType := cfg.CacheType
		if cacheType == "" || cacheType == "none" {
			cacheType = "bbolt"
		}
		cache, err := respcache.NewCache(cacheType, cfg.CachePath, respcache.Options{
			ResponseTTL:     cfg.CacheTTL,
			CleanupInterval: cfg.CacheCleanupInterval,
		})
		if err != nil {
			return fmt.Errorf("tmdbfetch fetch: open response cache: %w", err)
		}
		defer cache.Close()
		fetcher = respcache.NewCachedFetcher(client, cache, logger.Zap{})
	}

	ctx := context.Background()
	w := cmd.OutOrStdout()

	if asText {
		body, err := fetcher.FetchText(ctx, target, params)
		if err != nil {
			return fmt.Errorf("tmdbfetch fetch: %w", err)
		}
		fmt.Fprintln(w, body)
		return nil
	}

	var def json.RawMessage
	if fetchDefault != "" {
		if !json.Valid([]byte(fetchDefault)) {
			return fmt.Errorf("tmdbfetch fetch: --default is not valid JSON")
		}
		def = json.RawMessage(fetchDefault)
	}

	doc, err := fetcher.FetchJSON(ctx, target, params, def)
	if err != nil {
		return fmt.Errorf("tmdbfetch fetch: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		buf.Reset()
		buf.Write(doc)
	}
	fmt.Fprintln(w, buf.String())
	return nil
}

// mergeHeaders overlays override entries onto base without mutating either.
func mergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 {
		return override
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
