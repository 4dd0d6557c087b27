package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type Snapshot struct {
	Cash       decimal.Decimal            `json:"cash"`
	Positions  map[string]entity.Position `json:"positions"`
	CapturedAt time.Time                  `json:"captured_at"`
}

type SnapshotStore interface {
	Load(ctx context.Context, key string) (Snapshot, bool, error)
	Save(ctx context.Context, key string, snapshot Snapshot) error
}

type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(cacheDSN string) (*RedisSnapshotStore, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return &RedisSnapshotStore{client: redis.NewClient(options)}, nil
}

func (s *RedisSnapshotStore) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	rawSnapshot, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(rawSnapshot), &snapshot); err != nil {
		return Snapshot{}, false, err
	}

	return snapshot, true, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, key string, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, payload, 0).Err()
}

func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
