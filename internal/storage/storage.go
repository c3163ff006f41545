// Package storage remembers the last response emitted for each query.
package storage

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Store tracks the latest response fingerprint per query id.
type Store interface {
	Close() error
	// Changed reports whether fp differs from the last live fingerprint recorded for id.
	Changed(id string, fp Fingerprint) (bool, error)
	Record(id string, fp Fingerprint) error
}

// Fingerprint identifies a response body.
type Fingerprint [sha256.Size]byte

// FingerprintOf hashes a response body.
func FingerprintOf(body []byte) Fingerprint {
	return sha256.Sum256(body)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// noopStore treats every response as new.
type noopStore struct{}

func (noopStore) Close() error                              { return nil }
func (noopStore) Changed(string, Fingerprint) (bool, error) { return true, nil }
func (noopStore) Record(string, Fingerprint) error          { return nil }
