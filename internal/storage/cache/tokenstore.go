package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-pap-service/pkg/dispatch"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// ErrCacheMiss is returned by a CacheClient when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// GetPINs returns the cached list or ErrCacheMiss.
	GetPINs(ctx context.Context, key string) ([]string, error)
	// SetPINs stores the list with a TTL.
	SetPINs(ctx context.Context, key string, pins []string, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedTokenStore is a Decorator that adds Read-Aside caching to any TokenStore.
type CachedTokenStore struct {
	realStore dispatch.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

// NewCachedTokenStore creates the decorator.
func NewCachedTokenStore(realStore dispatch.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATH (Read-Aside) ---

func (s *CachedTokenStore) Fetch(ctx context.Context, user urn.URN) ([]string, error) {
	key := s.cacheKey(user)

	// Any cache error (miss or Redis down) falls through to the store.
	if pins, err := s.cache.GetPINs(ctx, key); err == nil {
		return pins, nil
	}

	pins, err := s.realStore.Fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction.
	_ = s.cache.SetPINs(ctx, key, pins, s.ttl)

	return pins, nil
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (s *CachedTokenStore) Register(ctx context.Context, user urn.URN, pin string) error {
	if err := s.realStore.Register(ctx, user, pin); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

// Unregister must clear the cache even though the store write already
// succeeded, otherwise pushes continue until the TTL expires.
func (s *CachedTokenStore) Unregister(ctx context.Context, user urn.URN, pin string) error {
	if err := s.realStore.Unregister(ctx, user, pin); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, user urn.URN) error {
	if err := s.cache.Del(ctx, s.cacheKey(user)); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

func (s *CachedTokenStore) cacheKey(user urn.URN) string {
	return fmt.Sprintf("pap:pins:%s", user.String())
}
