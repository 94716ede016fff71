package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"wishdraw-backend/internal/common/cache"
	"wishdraw-backend/internal/features/sponsor/models"
)

const (
	keyPrefixToken = "token:sponsor:"
	lruSize        = 10000
)

// TokenCache is the time-bounded token->sponsor mapping. A nil Resolution
// from Lookup means "unknown, ask the resolver"; a Resolution with an empty
// SponsorID is a still-fresh negative. Failed resolutions are never stored
// here, so a transient resolver outage cannot poison a token permanently.
type TokenCache struct {
	store       cache.Cache
	front       *lru.Cache // positive resolutions only
	positiveTTL time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

func NewTokenCache(store cache.Cache, positiveTTL, negativeTTL time.Duration) *TokenCache {
	front, _ := lru.New(lruSize)
	return &TokenCache{
		store:       store,
		front:       front,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
		now:         time.Now,
	}
}

func makeTokenKey(token string) string {
	return keyPrefixToken + token
}

// Lookup returns the cached resolution for a token, or nil when the token is
// unknown or the cached entry has aged out. Expiry is evaluated at read time.
func (c *TokenCache) Lookup(ctx context.Context, token string) (*models.Resolution, error) {
	if v, ok := c.front.Get(token); ok {
		res := v.(models.Resolution)
		if c.now().Sub(res.ResolvedAt) < c.positiveTTL {
			return &res, nil
		}
		c.front.Remove(token)
	}

	var res models.Resolution
	err := c.store.Get(ctx, makeTokenKey(token), &res)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	ttl := c.positiveTTL
	if !res.Found() {
		ttl = c.negativeTTL
	}
	if c.now().Sub(res.ResolvedAt) >= ttl {
		return nil, nil
	}

	if res.Found() {
		c.front.Add(token, res)
	}
	return &res, nil
}

// Store persists a resolver verdict with the current timestamp. Successful
// attributions are kept for the full freshness window and overwrite any prior
// negative; "no sponsor found" verdicts live under the shorter negative TTL.
func (c *TokenCache) Store(ctx context.Context, token, sponsorID string) error {
	res := models.Resolution{SponsorID: sponsorID, ResolvedAt: c.now()}

	ttl := c.positiveTTL
	if sponsorID == "" {
		ttl = c.negativeTTL
	}
	if err := c.store.Set(ctx, makeTokenKey(token), res, ttl); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	if sponsorID != "" {
		c.front.Add(token, res)
	} else {
		c.front.Remove(token)
	}
	return nil
}
