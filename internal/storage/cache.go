package storage

import (
	"fmt"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/raykavin/signalengine/internal/core"
)

// CacheStore implements core.Cache over BuntDB, grounded on the teacher's
// storage.BuntStorage, using buntdb's native per-key TTL (SetOptions.Expires)
// for the C6 short-TTL caches (latest_analysis, market_data, kline_data_*,
// analysis_progress).
type CacheStore struct {
	db *buntdb.DB
}

// NewCacheStore opens a BuntDB-backed cache at path (":memory:" for an
// in-memory instance, mirroring the teacher's FromMemory/FromFile pair).
func NewCacheStore(path string) (*CacheStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	return &CacheStore{db: db}, nil
}

// Set writes value under key with the given TTL.
func (c *CacheStore) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(value), &buntdb.SetOptions{Expires: true, TTL: ttl})
		return err
	})
}

// Get reads the value stored under key. Returns found=false (no error) for
// a missing or expired key.
func (c *CacheStore) Get(key string) ([]byte, bool, error) {
	var value string
	err := c.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Close closes the underlying database.
func (c *CacheStore) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ core.Cache = (*CacheStore)(nil)
