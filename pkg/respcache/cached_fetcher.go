package respcache

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic fingerprint
	"encoding/hex"
	"encoding/json"

	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
)

// CachedFetcher serves JSON fetches from a local cache before touching the
// service or the network. Text fetches pass through untouched; caller
// defaults are applied here and never written to the cache.
type CachedFetcher struct {
	next  apiclient.Fetcher
	cache Cache
	log   apiclient.Logger
}

var _ apiclient.Fetcher = (*CachedFetcher)(nil)

// NewCachedFetcher decorates next with cache. A nil cache disables caching;
// a nil log disables logging.
func NewCachedFetcher(next apiclient.Fetcher, cache Cache, log apiclient.Logger) *CachedFetcher {
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = apiclient.NopLogger
	}
	return &CachedFetcher{next: next, cache: cache, log: log}
}

// FetchJSON returns a fresh cached payload when one exists, otherwise
// delegates and caches the successful result.
func (f *CachedFetcher) FetchJSON(ctx context.Context, rawURL string, params apiclient.Params, def json.RawMessage) (json.RawMessage, error) {
	key := requestKey(rawURL, params)

	cached, ok, err := f.cache.Get(key)
	if err != nil {
		f.log.WarnObj("response cache read failed", "cache_error", map[string]any{
			"url":   rawURL,
			"error": err.Error(),
		})
	} else if ok && json.Valid(cached) {
		f.log.DebugObj("response cache hit", "cache", map[string]any{"url": rawURL})
		return json.RawMessage(cached), nil
	}

	out, err := f.next.FetchJSON(ctx, rawURL, params, nil)
	if err != nil {
		if def != nil {
			return def, nil
		}
		return nil, err
	}

	if err := f.cache.Set(key, out); err != nil {
		f.log.WarnObj("response cache write failed", "cache_error", map[string]any{
			"url":   rawURL,
			"error": err.Error(),
		})
	}
	return out, nil
}

// FetchText delegates without caching.
func (f *CachedFetcher) FetchText(ctx context.Context, rawURL string, params apiclient.Params) (string, error) {
	return f.next.FetchText(ctx, rawURL, params)
}

// requestKey fingerprints a request by its fully encoded URL.
func requestKey(rawURL string, params apiclient.Params) string {
	encoded, err := apiclient.EncodedURL(rawURL, params)
	if err != nil {
		encoded = rawURL
	}
	sum := sha1.Sum([]byte(encoded))
	return hex.EncodeToString(sum[:])
}
