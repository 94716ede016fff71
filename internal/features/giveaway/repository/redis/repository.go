package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/features/giveaway/repository"
	"wishdraw-backend/internal/platform/redis"
)

const (
	keyPrefixGiveaway = "giveaway:"
	keyDueGiveaways   = "giveaways:due" // sorted set, score = deadline unix
	maxClaimRetries   = 3
)

type redisRepository struct {
	client *redis.Client
}

func NewRedisGiveawayRepository(client *redis.Client) repository.GiveawayRepository {
	return &redisRepository{client: client}
}

func makeGiveawayKey(id string) string {
	return keyPrefixGiveaway + id
}

func makeEntriesKey(id string) string {
	return keyPrefixGiveaway + id + ":entries"
}

func makeWinnersKey(id string) string {
	return keyPrefixGiveaway + id + ":winners"
}

func (r *redisRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.ID), data, 0)
	pipe.ZAdd(ctx, keyDueGiveaways, goredis.Z{
		Score:  float64(giveaway.EndsAt.Unix()),
		Member: giveaway.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}

	var giveaway models.Giveaway
	if err := json.Unmarshal(data, &giveaway); err != nil {
		return nil, err
	}
	return &giveaway, nil
}

func (r *redisRepository) GetDueGiveaways(ctx context.Context, now time.Time) ([]string, error) {
	return r.client.ZRangeByScore(ctx, keyDueGiveaways, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
}

// transition performs an optimistic compare-and-set on the giveaway's status
// using WATCH, so concurrent workers cannot both move the same giveaway.
func (r *redisRepository) transition(ctx context.Context, id string, from, to models.GiveawayStatus, now time.Time, conflictErr error) error {
	key := makeGiveawayKey(id)

	txn := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			return repository.ErrGiveawayNotFound
		}
		if err != nil {
			return err
		}

		var giveaway models.Giveaway
		if err := json.Unmarshal(data, &giveaway); err != nil {
			return err
		}
		if giveaway.Status != from {
			return conflictErr
		}

		giveaway.Status = to
		giveaway.UpdatedAt = now
		updated, err := json.Marshal(&giveaway)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			if to == models.GiveawayStatusFinalized || to == models.GiveawayStatusCancelled {
				pipe.ZRem(ctx, keyDueGiveaways, id)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxClaimRetries; attempt++ {
		err := r.client.Watch(ctx, txn, key)
		if err == goredis.TxFailedErr {
			// Another worker touched the key between read and write; the
			// re-read decides whether the transition is still possible.
			continue
		}
		return err
	}
	return conflictErr
}

func (r *redisRepository) Claim(ctx context.Context, id string, now time.Time) error {
	return r.transition(ctx, id, models.GiveawayStatusOpen, models.GiveawayStatusClaimed, now, repository.ErrAlreadyClaimed)
}

func (r *redisRepository) Release(ctx context.Context, id string, now time.Time) error {
	return r.transition(ctx, id, models.GiveawayStatusClaimed, models.GiveawayStatusOpen, now, repository.ErrNotClaimed)
}

func (r *redisRepository) Finalize(ctx context.Context, id string, now time.Time) error {
	return r.transition(ctx, id, models.GiveawayStatusClaimed, models.GiveawayStatusFinalized, now, repository.ErrNotClaimed)
}

func (r *redisRepository) Cancel(ctx context.Context, id string, now time.Time) error {
	return r.transition(ctx, id, models.GiveawayStatusOpen, models.GiveawayStatusCancelled, now, repository.ErrNotOpen)
}

func (r *redisRepository) UpsertEntry(ctx context.Context, entry *models.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	field := strconv.FormatInt(entry.ParticipantID, 10)
	return r.client.HSet(ctx, makeEntriesKey(entry.GiveawayID), field, data).Err()
}

func (r *redisRepository) GetEntries(ctx context.Context, giveawayID string) ([]*models.Entry, error) {
	raw, err := r.client.HGetAll(ctx, makeEntriesKey(giveawayID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*models.Entry, 0, len(raw))
	for _, data := range raw {
		var entry models.Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("corrupt entry in giveaway %s: %w", giveawayID, err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (r *redisRepository) CountEntries(ctx context.Context, giveawayID string) (int64, error) {
	return r.client.HLen(ctx, makeEntriesKey(giveawayID)).Result()
}

func (r *redisRepository) AppendWinners(ctx context.Context, giveawayID string, records []models.WinnerRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal winner record: %w", err)
		}
		values = append(values, data)
	}
	return r.client.RPush(ctx, makeWinnersKey(giveawayID), values...).Err()
}

func (r *redisRepository) GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error) {
	raw, err := r.client.LRange(ctx, makeWinnersKey(giveawayID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]models.WinnerRecord, 0, len(raw))
	for _, data := range raw {
		var record models.WinnerRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("corrupt winner record in giveaway %s: %w", giveawayID, err)
		}
		records = append(records, record)
	}
	return records, nil
}
