package jwtkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultKeySetTTL    = 10 * time.Minute
	DefaultFetchTimeout = 8 * time.Second

	maxKeySetBytes = 1 << 20
)

// ErrNoKeySetURL is returned when the cache has no source to fetch from.
var ErrNoKeySetURL = errors.New("jwks url not configured")

// FetchError describes a failed key-set retrieval.
type FetchError struct {
	URL    string
	Status int // 0 when no HTTP response was received
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("jwks fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("jwks fetch %s: status %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("jwks fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Unauthorized reports whether the JWKS endpoint rejected our credentials.
// Kept distinct so a missing or wrong api key does not read like an outage.
func (e *FetchError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// MaterialStore holds the most recently fetched material.
type MaterialStore interface {
	Load(ctx context.Context) (Material, bool, error)
	Save(ctx context.Context, m Material) error
}

// localStore is the default process-local MaterialStore.
type localStore struct {
	mu sync.RWMutex
	m  Material
}

func (s *localStore) Load(context.Context) (Material, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m, !s.m.IsZero(), nil
}

func (s *localStore) Save(_ context.Context, m Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = m
	return nil
}

// KeySetCacheConfig configures where and how the key set is fetched.
type KeySetCacheConfig struct {
	URL          string
	APIKey       string // sent as the "apikey" header when set
	TTL          time.Duration
	FetchTimeout time.Duration
}

// KeySetCache is a TTL cache over a remote JWKS document.
// Material older than TTL is never served; the next Get refetches synchronously.
// A failed fetch fails the caller and leaves the previous material in the store.
type KeySetCache struct {
	cfg    KeySetCacheConfig
	client *http.Client
	store  MaterialStore
	now    func() time.Time
	log    logrus.FieldLogger
	group  singleflight.Group
}

// KeySetCacheOpt configures a KeySetCache.
type KeySetCacheOpt func(*KeySetCache)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(c *http.Client) KeySetCacheOpt {
	return func(k *KeySetCache) { k.client = c }
}

// WithMaterialStore replaces the process-local store.
func WithMaterialStore(s MaterialStore) KeySetCacheOpt {
	return func(k *KeySetCache) { k.store = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) KeySetCacheOpt {
	return func(k *KeySetCache) { k.now = now }
}

// WithLogger sets the logger used for refresh events.
func WithLogger(l logrus.FieldLogger) KeySetCacheOpt {
	return func(k *KeySetCache) { k.log = l }
}

func NewKeySetCache(cfg KeySetCacheConfig, opts ...KeySetCacheOpt) *KeySetCache {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultKeySetTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	k := &KeySetCache{
		cfg:    cfg,
		client: &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment}},
		store:  &localStore{},
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Get returns cached material, refetching when it is missing or stale.
func (k *KeySetCache) Get(ctx context.Context) (Material, error) {
	if k.cfg.URL == "" {
		return Material{}, ErrNoKeySetURL
	}
	m, ok, err := k.store.Load(ctx)
	if err != nil {
		k.log.WithError(err).Warn("jwks store load failed; refetching")
	} else if ok && m.Fresh(k.now(), k.cfg.TTL) {
		return m, nil
	}
	return k.refresh(ctx)
}

// Refresh fetches the key set regardless of cache age.
func (k *KeySetCache) Refresh(ctx context.Context) (Material, error) {
	if k.cfg.URL == "" {
		return Material{}, ErrNoKeySetURL
	}
	return k.refresh(ctx)
}

// refresh collapses concurrent refreshes into one fetch. The fetch is detached
// from the first caller's cancellation so waiters are not failed by it.
func (k *KeySetCache) refresh(ctx context.Context) (Material, error) {
	ch := k.group.DoChan(k.cfg.URL, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.cfg.FetchTimeout)
		defer cancel()
		m, err := k.fetch(fetchCtx)
		if err != nil {
			return Material{}, err
		}
		if err := k.store.Save(fetchCtx, m); err != nil {
			k.log.WithError(err).Warn("jwks store save failed")
		}
		k.log.WithFields(logrus.Fields{"url": k.cfg.URL, "keys": len(m.KeyIDs())}).Debug("jwks refreshed")
		return m, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Material{}, res.Err
		}
		return res.Val.(Material), nil
	case <-ctx.Done():
		return Material{}, &FetchError{URL: k.cfg.URL, Err: ctx.Err()}
	}
}

func (k *KeySetCache) fetch(ctx context.Context) (Material, error) {
	fetchedAt := k.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.cfg.URL, nil)
	if err != nil {
		return Material{}, &FetchError{URL: k.cfg.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if k.cfg.APIKey != "" {
		req.Header.Set("apikey", k.cfg.APIKey)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return Material{}, &FetchError{URL: k.cfg.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxKeySetBytes))
		return Material{}, &FetchError{URL: k.cfg.URL, Status: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return Material{}, &FetchError{URL: k.cfg.URL, Status: resp.StatusCode, Err: err}
	}
	m, err := ParseMaterial(raw, fetchedAt)
	if err != nil {
		return Material{}, &FetchError{URL: k.cfg.URL, Status: resp.StatusCode, Err: err}
	}
	return m, nil
}
