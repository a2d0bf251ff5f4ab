package propstore

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
	propertyBucket = "properties"
	expiryHdrBytes = 8
)

// boltStore implements a Store backed by BoltDB. A local daemon publishes
// properties into the shared file; every entry carries an expiry so a dead
// daemon's port advertisement stops resolving instead of pointing at a
// closed socket forever.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	propertyTTL     time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create property store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(propertyBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		propertyTTL:     opts.PropertyTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Property returns the stored value for key. Expired entries read as unset
// and are removed on the way out.
func (b *boltStore) Property(key string) (string, error) {
	if b == nil || b.db == nil {
		return "", nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return "", err
	}

	var value string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(propertyBucket))
		if bucket == nil {
			return fmt.Errorf("property bucket missing")
		}

		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}

		expiry, stored, ok := decodeProperty(raw)
		if !ok || !expiry.After(time.Now()) {
			return bucket.Delete([]byte(key))
		}

		value = stored
		return nil
	})
	return value, err
}

// SetProperty publishes value under key with the store's TTL.
func (b *boltStore) SetProperty(key, value string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(propertyBucket))
		if bucket == nil {
			return fmt.Errorf("property bucket missing")
		}
		return bucket.Put([]byte(key), encodeProperty(now.Add(b.propertyTTL), value))
	})
}

// maybeCleanupExpired removes expired properties on a fixed cadence to avoid
// unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
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
		bucket := tx.Bucket([]byte(propertyBucket))
		if bucket == nil {
			return fmt.Errorf("property bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeProperty(v)
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

// encodeProperty lays out a stored entry as an 8-byte big-endian expiry
// followed by the value bytes.
func encodeProperty(expiry time.Time, value string) []byte {
	buf := make([]byte, expiryHdrBytes+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryHdrBytes:], value)
	return buf
}

// decodeProperty splits a stored entry into expiry and value.
func decodeProperty(raw []byte) (time.Time, string, bool) {
	if len(raw) < expiryHdrBytes {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(raw[:expiryHdrBytes]))
	if unix <= 0 {
		return time.Time{}, "", false
	}
	return time.Unix(unix, 0), string(raw[expiryHdrBytes:]), true
}
