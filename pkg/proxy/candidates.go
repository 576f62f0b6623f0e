// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/aiku/mattermost-proxybot/pkg/database"
)

// CandidateCache keeps the proxy candidates of recently active accounts in
// memory so ordinary chatter doesn't hit the database on every message.
type CandidateCache struct {
	db    *database.Database
	cache *cache.Cache
}

// NewCandidateCache creates a cache whose entries live for ttl. A ttl of zero
// or less disables caching.
func NewCandidateCache(db *database.Database, ttl time.Duration) *CandidateCache {
	cc := &CandidateCache{db: db}
	if ttl > 0 {
		cc.cache = cache.New(ttl, 2*ttl)
	}
	return cc
}

func (cc *CandidateCache) Get(ctx context.Context, accountID string) ([]*database.ProxyCandidate, error) {
	if cc.cache != nil {
		if cached, ok := cc.cache.Get(accountID); ok {
			return cached.([]*database.ProxyCandidate), nil
		}
	}
	candidates, err := cc.db.Member.GetProxyCandidates(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proxy candidates: %w", err)
	}
	if cc.cache != nil {
		cc.cache.SetDefault(accountID, candidates)
	}
	return candidates, nil
}

// Invalidate drops the cached candidates of the given accounts.
func (cc *CandidateCache) Invalidate(accountIDs ...string) {
	if cc.cache == nil {
		return
	}
	for _, id := range accountIDs {
		cc.cache.Delete(id)
	}
}

// Len returns the number of cached accounts.
func (cc *CandidateCache) Len() int {
	if cc.cache == nil {
		return 0
	}
	return cc.cache.ItemCount()
}
