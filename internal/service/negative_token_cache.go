package service

import (
	"context"
	"sync"
	"time"
)

// NegativeTokenCacheStore remembers tokens that recently missed storage, so
// repeated probes with invalid credentials do not reach the database. It is
// only ever a shed for negative lookups: a cache miss means "ask storage",
// never "token is valid".
type NegativeTokenCacheStore interface {
	Get(ctx context.Context, namespace, token string) (bool, error)
	Set(ctx context.Context, namespace, token string, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopNegativeTokenCacheStore struct{}

func NewNoopNegativeTokenCacheStore() *NoopNegativeTokenCacheStore {
	return &NoopNegativeTokenCacheStore{}
}

func (s *NoopNegativeTokenCacheStore) Get(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *NoopNegativeTokenCacheStore) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (s *NoopNegativeTokenCacheStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

type InMemoryNegativeTokenCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]time.Time
}

func NewInMemoryNegativeTokenCacheStore() *InMemoryNegativeTokenCacheStore {
	return &InMemoryNegativeTokenCacheStore{
		store: make(map[string]map[string]time.Time),
	}
}

func (s *InMemoryNegativeTokenCacheStore) Get(_ context.Context, namespace, token string) (bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	ns, ok := s.store[namespace]
	if !ok {
		s.mu.RUnlock()
		return false, nil
	}
	expiresAt, ok := ns[token]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		s.mu.Lock()
		if ns2, ok2 := s.store[namespace]; ok2 {
			delete(ns2, token)
			if len(ns2) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *InMemoryNegativeTokenCacheStore) Set(_ context.Context, namespace, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]time.Time)
		s.store[namespace] = ns
	}
	ns[token] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *InMemoryNegativeTokenCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, namespace)
	return nil
}
