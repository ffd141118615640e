package pokeapi

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

const recordBucket = "pokemon"

type cachedRecord struct {
	Record    pokemon.Record `json:"record"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// BoltCache keeps fetched records in a BoltDB file.
type BoltCache struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBoltCache opens or creates the cache file at path. Entries older than
// ttl are treated as misses; zero ttl keeps entries forever.
func OpenBoltCache(path string, ttl time.Duration) (*BoltCache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("pokeapi: cache path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("pokeapi: open cache db: %w", err)
	}

	cache := &BoltCache{db: db, ttl: ttl, now: time.Now}
	if err := cache.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying BoltDB database.
func (c *BoltCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns a fresh cached record.
func (c *BoltCache) Get(ctx context.Context, id int) (pokemon.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return pokemon.Record{}, false, err
	}

	var entry cachedRecord
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		if bucket == nil {
			return fmt.Errorf("pokemon bucket is missing")
		}
		payload := bucket.Get(recordKey(id))
		if payload == nil {
			return nil
		}
		if err := json.Unmarshal(payload, &entry); err != nil {
			return fmt.Errorf("unmarshal cached record: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return pokemon.Record{}, false, fmt.Errorf("pokeapi: cache get: %w", err)
	}
	if !found {
		return pokemon.Record{}, false, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.FetchedAt) > c.ttl {
		return pokemon.Record{}, false, nil
	}
	return entry.Record, true, nil
}

// Put stores rec stamped with the current time.
func (c *BoltCache) Put(ctx context.Context, rec pokemon.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("pokeapi: cache put: %w", err)
	}

	payload, err := json.Marshal(cachedRecord{Record: rec, FetchedAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("pokeapi: marshal cached record: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		if bucket == nil {
			return fmt.Errorf("pokemon bucket is missing")
		}
		return bucket.Put(recordKey(rec.ID), payload)
	})
}

// Len returns the number of cached entries, fresh or not.
func (c *BoltCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		if bucket == nil {
			return fmt.Errorf("pokemon bucket is missing")
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

func (c *BoltCache) ensureBuckets() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(recordBucket)); err != nil {
			return fmt.Errorf("create pokemon bucket: %w", err)
		}
		return nil
	})
}

// recordKey encodes id big-endian so keys sort numerically.
func recordKey(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
