package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

const redisPrefix = "orderbridge:prior"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore keeps one hash per prior record.
type RedisStore struct {
	client RedisClient
	logger *slog.Logger
}

// OpenRedis connects to cfg.RedisAddr and checks the connection.
func OpenRedis(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, logger), nil
}

func NewRedisStore(client RedisClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// RedisKey is the hash key holding the record for kind and key.
func RedisKey(kind constants.RecordKind, key string) string {
	return redisPrefix + ":" + string(kind) + ":" + key
}

func (s *RedisStore) Lookup(ctx context.Context, kind constants.RecordKind, key string) (*entity.PriorKnownRecord, error) {
	values, err := s.client.HGetAll(ctx, RedisKey(kind, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read prior record: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	rec := &entity.PriorKnownRecord{
		Kind:       kind,
		Key:        key,
		Status:     constants.ResultStatus(values["status"]),
		ExternalID: values["external_id"],
		DocID:      values["doc_id"],
	}
	rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, values["recorded_at"])
	return rec, nil
}

func (s *RedisStore) Remember(ctx context.Context, rec entity.PriorKnownRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	err := s.client.HSet(ctx, RedisKey(rec.Kind, rec.Key),
		"status", string(rec.Status),
		"external_id", rec.ExternalID,
		"doc_id", rec.DocID,
		"recorded_at", rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store prior record: %w", err)
	}
	s.logger.Debug("ledger.remember", "kind", rec.Kind, "key", rec.Key, "status", rec.Status)
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
