// Package rendercache stores rendered wiki HTML in a bbolt database. Entries
// keep their version stamp; Get validates the stamp against the version the
// cache was opened with, so stale HTML from an older pipeline is reported as
// a miss instead of being served.
package rendercache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/loamwiki/loam/render"
)

var bucketRendered = []byte("rendered")

// Cache is a content-addressed store of stamped HTML.
type Cache struct {
	db      *bolt.DB
	version int
}

// Open opens (or creates) the cache database at path. version is the
// renderer version cached entries must carry to be served.
func Open(path string, version int) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening render cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRendered)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing render cache: %w", err)
	}
	return &Cache{db: db, version: version}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for one page render: the key changes whenever
// the namespace, the slug or the source text changes.
func Key(namespace, slug, source string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(slug))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached HTML for key. Entries whose stamp does not match
// the cache's version are misses; they are left in place and overwritten by
// the next Put.
func (c *Cache) Get(key string) (string, bool) {
	var html string
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketRendered).Get([]byte(key)); v != nil {
			html = string(v)
		}
		return nil
	})
	if html == "" || !render.IsValid(html, c.version) {
		return "", false
	}
	return html, true
}

// Put stores stamped HTML under key.
func (c *Cache) Put(key, html string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRendered).Put([]byte(key), []byte(html))
	})
}
