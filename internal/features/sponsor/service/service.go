package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"wishdraw-backend/internal/common/logger"
	"wishdraw-backend/internal/features/sponsor/cache"
	"wishdraw-backend/internal/features/sponsor/models"
	"wishdraw-backend/internal/features/sponsor/repository"
	"wishdraw-backend/internal/features/sponsor/resolver"
)

// Attributor maps submitted tokens to sponsor ids. Tokens that cannot be
// attributed this time (unknown, resolver failure, no sponsor) are simply
// absent from the result; absence is never proof that a token has no sponsor.
type Attributor interface {
	Attribute(ctx context.Context, tokens []string) (map[string]string, error)
}

// AttributionService is the cache-first token->sponsor pipeline: cached
// verdicts answer immediately, misses fan out to the resolver under its
// concurrency bound, and successful resolutions are written back durably.
type AttributionService struct {
	cache    *cache.TokenCache
	resolver resolver.Resolver
	sponsors repository.SponsorRepository
}

func NewAttributionService(tokenCache *cache.TokenCache, res resolver.Resolver, sponsors repository.SponsorRepository) *AttributionService {
	return &AttributionService{
		cache:    tokenCache,
		resolver: res,
		sponsors: sponsors,
	}
}

func (s *AttributionService) Attribute(ctx context.Context, tokens []string) (map[string]string, error) {
	attributed := make(map[string]string, len(tokens))
	var misses []string

	for _, token := range tokens {
		res, err := s.cache.Lookup(ctx, token)
		if err != nil {
			return nil, err
		}
		if res == nil {
			misses = append(misses, token)
			continue
		}
		if res.Found() {
			attributed[token] = res.SponsorID
		}
		// Fresh negative: skip without asking the resolver again.
	}

	if len(misses) == 0 {
		return attributed, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, token := range misses {
		token := token
		g.Go(func() error {
			sponsorID, err := s.resolver.Resolve(gctx, token)
			if err != nil {
				if errors.Is(err, resolver.ErrUnavailable) {
					// Transient: degrade to unattributed, do not cache,
					// retried on the next lookup.
					logger.Warn().Str("token", token).Err(err).Msg("token resolution degraded")
					return nil
				}
				return err
			}

			if storeErr := s.cache.Store(gctx, token, sponsorID); storeErr != nil {
				logger.Warn().Str("token", token).Err(storeErr).Msg("failed to cache resolution")
			}

			if sponsorID == "" {
				return nil
			}

			mu.Lock()
			attributed[token] = sponsorID
			mu.Unlock()

			if upsertErr := s.sponsors.Upsert(gctx, models.Sponsor{ID: sponsorID}); upsertErr != nil {
				logger.Warn().Str("sponsor_id", sponsorID).Err(upsertErr).Msg("failed to record sponsor")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attributed, nil
}

// CountBySponsor folds a token attribution into per-sponsor counts, the form
// the eligibility evaluator consumes.
func CountBySponsor(attribution map[string]string) map[string]int {
	counts := make(map[string]int, len(attribution))
	for _, sponsorID := range attribution {
		counts[sponsorID]++
	}
	return counts
}
