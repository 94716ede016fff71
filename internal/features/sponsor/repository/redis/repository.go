package redis

import (
	"context"
	"fmt"
	"sort"

	"wishdraw-backend/internal/features/sponsor/models"
	"wishdraw-backend/internal/features/sponsor/repository"
	"wishdraw-backend/internal/platform/redis"
)

const keySponsors = "sponsors"

type redisRepository struct {
	client *redis.Client
}

func NewRedisSponsorRepository(client *redis.Client) repository.SponsorRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Upsert(ctx context.Context, sponsor models.Sponsor) error {
	if sponsor.ID == "" {
		return fmt.Errorf("empty sponsor id")
	}
	if sponsor.Label == "" {
		// Keep whatever label is already known.
		return r.client.HSetNX(ctx, keySponsors, sponsor.ID, "").Err()
	}
	return r.client.HSet(ctx, keySponsors, sponsor.ID, sponsor.Label).Err()
}

func (r *redisRepository) SetLabel(ctx context.Context, id, label string) error {
	return r.client.HSet(ctx, keySponsors, id, label).Err()
}

func (r *redisRepository) List(ctx context.Context) ([]models.Sponsor, error) {
	entries, err := r.client.HGetAll(ctx, keySponsors).Result()
	if err != nil {
		return nil, err
	}

	sponsors := make([]models.Sponsor, 0, len(entries))
	for id, label := range entries {
		sponsors = append(sponsors, models.Sponsor{ID: id, Label: label})
	}
	sort.Slice(sponsors, func(i, j int) bool { return sponsors[i].ID < sponsors[j].ID })
	return sponsors, nil
}
