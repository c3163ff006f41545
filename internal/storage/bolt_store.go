package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("responses")

// entry layout: 8-byte big-endian unix expiry followed by the fingerprint.
const entrySize = 8 + len(Fingerprint{})

var errBucketMissing = errors.New("responses bucket missing")

// boltStore keeps one entry per query id in a single bucket.
type boltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	sweepMu    sync.Mutex
	sweepEvery time.Duration
	lastSweep  time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{
		db:         db,
		ttl:        opts.TTL,
		now:        time.Now,
		sweepEvery: opts.CleanupInterval,
		lastSweep:  time.Now(),
	}, nil
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

func (b *boltStore) Changed(id string, fp Fingerprint) (bool, error) {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return false, err
	}

	changed := true
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errBucketMissing
		}
		if stored, ok := decodeEntry(bucket.Get([]byte(id)), now); ok {
			changed = !bytes.Equal(stored[:], fp[:])
		}
		return nil
	})
	return changed, err
}

func (b *boltStore) Record(id string, fp Fingerprint) error {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return err
	}

	val := make([]byte, entrySize)
	binary.BigEndian.PutUint64(val[:8], uint64(now.Add(b.ttl).Unix()))
	copy(val[8:], fp[:])

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(id), val)
	})
}

// sweep drops expired or malformed entries, at most once per cleanup interval.
func (b *boltStore) sweep(now time.Time) error {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if now.Sub(b.lastSweep) < b.sweepEvery {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errBucketMissing
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if _, ok := decodeEntry(v, now); !ok {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired entries: %w", err)
	}
	b.lastSweep = now
	return nil
}

// decodeEntry returns the stored fingerprint when the entry is well-formed and not expired.
func decodeEntry(val []byte, now time.Time) (Fingerprint, bool) {
	var fp Fingerprint
	if len(val) != entrySize {
		return fp, false
	}
	expiry := time.Unix(int64(binary.BigEndian.Uint64(val[:8])), 0)
	if !expiry.After(now) {
		return fp, false
	}
	copy(fp[:], val[8:])
	return fp, true
}
