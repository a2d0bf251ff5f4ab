package respcache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	responseBucket = "responses"
	expiryHdrBytes = 8
)

// boltCache implements a Cache backed by BoltDB. Entries carry an expiry in
// an 8-byte header; expired entries read as misses and a cadence sweep
// removes them.
type boltCache struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	responseTTL     time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Cache.
func openBolt(path string, opts Options) (Cache, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(responseBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	cache := &boltCache{
		db:              db,
		responseTTL:     opts.ResponseTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	cache.lastCleanup.Store(time.Now().Unix())
	return cache, nil
}

// Close closes the BoltDB cache.
func (b *boltCache) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the cached payload for key if it is still fresh.
func (b *boltCache) Get(key string) ([]byte, bool, error) {
	if b == nil || b.db == nil {
		return nil, false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return nil, false, err
	}

	var (
		value []byte
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return fmt.Errorf("response bucket missing")
		}

		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		expiry, payload, ok := splitEntry(raw)
		if !ok || !expiry.After(time.Now()) {
			// stale entry; the cleanup sweep removes it
			return nil
		}

		// bucket memory is only valid inside the transaction
		value = append([]byte(nil), payload...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Set stores value under key with the cache's TTL.
func (b *boltCache) Set(key string, value []byte) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return fmt.Errorf("response bucket missing")
		}
		return bucket.Put([]byte(key), packEntry(now.Add(b.responseTTL), value))
	})
}

// maybeCleanupExpired sweeps expired responses on a fixed cadence to avoid
// unbounded growth.
func (b *boltCache) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return fmt.Errorf("response bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := splitEntry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// packEntry lays out an entry as an 8-byte big-endian expiry followed by the
// payload.
func packEntry(expiry time.Time, payload []byte) []byte {
	buf := make([]byte, expiryHdrBytes+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryHdrBytes:], payload)
	return buf
}

// splitEntry splits a stored entry into expiry and payload.
func splitEntry(raw []byte) (time.Time, []byte, bool) {
	if len(raw) < expiryHdrBytes {
		return time.Time{}, nil, false
	}
	unix := int64(binary.BigEndian.Uint64(raw[:expiryHdrBytes]))
	if unix <= 0 {
		return time.Time{}, nil, false
	}
	return time.Unix(unix, 0), raw[expiryHdrBytes:], true
}
