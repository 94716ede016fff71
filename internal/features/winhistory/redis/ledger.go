package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"wishdraw-backend/internal/features/winhistory"
	"wishdraw-backend/internal/platform/redis"
)

const keyLastWins = "winhistory:last_win"

type redisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) winhistory.Ledger {
	return &redisLedger{client: client}
}

func (l *redisLedger) LastWin(ctx context.Context, participantID int64) (*time.Time, error) {
	value, err := l.client.HGet(ctx, keyLastWins, strconv.FormatInt(participantID, 10)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("corrupt last-win timestamp for %d: %w", participantID, err)
	}
	return &ts, nil
}

func (l *redisLedger) RecordWin(ctx context.Context, participantID int64, at time.Time) error {
	return l.client.HSet(ctx, keyLastWins,
		strconv.FormatInt(participantID, 10), at.UTC().Format(time.RFC3339Nano)).Err()
}
