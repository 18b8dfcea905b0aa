// Package cache implements the response cache sitting in front of the
// fallback chains: a deterministic request fingerprint maps to a previously
// computed routing result with a time-to-live. The cache is backed by a
// narrow key/value Store contract so deployments can share entries across
// processes (see the redis subpackage) or stay process-local (InMemoryStore).
//
// Store failures are never fatal: the router treats ErrUnavailable as a
// forced cache miss and routes without caching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/ragmesh/logging"
)

// ErrNotFound is returned by Store.Get when the key is absent.
var ErrNotFound = errors.New("cache entry not found")

// ErrUnavailable wraps store failures. Callers treat it as a cache miss.
var ErrUnavailable = errors.New("cache unavailable")

// Store is the key/value contract backing the response cache. Implementations
// must tolerate concurrent access for distinct and identical keys. A ttl of
// zero means the entry never expires at the store level.
type Store interface {
	// Get returns the stored bytes or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the bytes under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Entry is the cached routing result payload together with its expiry
// attributes. CreatedAt and TTL let the read path re-check expiry against
// stores that return entries past their time-to-live.
type Entry struct {
	Text      string        `json:"text"`
	Provider  string        `json:"provider"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry's time-to-live has passed at now.
// A zero TTL never expires.
func (e Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// Options configures a ResponseCache.
type Options struct {
	Logger logging.Logger
}

// ResponseCache maps request fingerprints to previously computed responses.
type ResponseCache struct {
	store  Store
	ttl    time.Duration
	logger logging.Logger
	now    func() time.Time
}

// New creates a ResponseCache over the given store. Entries are written with
// the configured ttl; a ttl of zero disables expiry.
func New(store Store, ttl time.Duration, optFns ...func(o *Options)) *ResponseCache {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ResponseCache{
		store:  store,
		ttl:    ttl,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Get looks up an unexpired entry by fingerprint. The boolean reports a hit.
// A store failure is surfaced as an error wrapping ErrUnavailable with the
// hit flag false, so callers can log it and proceed as on a miss.
func (c *ResponseCache) Get(ctx context.Context, fingerprint string) (Entry, bool, error) {
	raw, err := c.store.Get(ctx, fingerprint)
	if errors.Is(err, ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupt payloads are dropped rather than surfaced.
		c.logger.Warn("dropping undecodable cache entry", "fingerprint", fingerprint, "error", err)
		_ = c.store.Delete(ctx, fingerprint)
		return Entry{}, false, nil
	}

	// Stores may return entries past their TTL; expiry is re-checked here.
	if entry.Expired(c.now()) {
		return Entry{}, false, nil
	}

	return entry, true, nil
}

// Put stores an entry under the fingerprint with the configured TTL. A put
// always replaces any existing value; there is no update-in-place.
func (c *ResponseCache) Put(ctx context.Context, fingerprint string, entry Entry) error {
	entry.CreatedAt = c.now()
	entry.TTL = c.ttl

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.store.Set(ctx, fingerprint, raw, c.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Invalidate removes the entry for a fingerprint.
func (c *ResponseCache) Invalidate(ctx context.Context, fingerprint string) error {
	if err := c.store.Delete(ctx, fingerprint); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
