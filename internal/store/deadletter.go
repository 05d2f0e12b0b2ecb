package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keylia/api/internal/model"
)

const (
	dlqZSetKey = "dlq:failures"
	dlqHashKey = "dlq:by_id"

	// maxDeadLetters caps retained records; the oldest are evicted first.
	maxDeadLetters = 1000
)

var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DeadLetterStore keeps permanently failed tasks for inspection and manual
// replay. Records live in a sorted set ordered by failure time plus a hash
// for O(1) lookup by task id.
type DeadLetterStore struct {
	redis *redis.Client
}

func NewDeadLetterStore(redisClient *redis.Client) *DeadLetterStore {
	return &DeadLetterStore{redis: redisClient}
}

// Record stores a failed task. Errors are logged, not returned: dead-letter
// capture must never mask the original task failure.
func (s *DeadLetterStore) Record(ctx context.Context, rec *model.DeadLetterRecord) {
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("Dead letter marshal failed for task %s: %v", rec.TaskID, err)
		return
	}

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, dlqZSetKey, redis.Z{Score: float64(rec.FailedAt.UnixMilli()), Member: rec.TaskID})
	pipe.HSet(ctx, dlqHashKey, rec.TaskID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Dead letter write failed for task %s: %v", rec.TaskID, err)
		return
	}

	s.evictOldest(ctx)
}

// evictOldest trims the set down to the retention cap.
func (s *DeadLetterStore) evictOldest(ctx context.Context) {
	count, err := s.redis.ZCard(ctx, dlqZSetKey).Result()
	if err != nil || count <= maxDeadLetters {
		return
	}

	excess := count - maxDeadLetters
	oldest, err := s.redis.ZRange(ctx, dlqZSetKey, 0, excess-1).Result()
	if err != nil || len(oldest) == 0 {
		return
	}

	pipe := s.redis.TxPipeline()
	pipe.ZRemRangeByRank(ctx, dlqZSetKey, 0, excess-1)
	pipe.HDel(ctx, dlqHashKey, oldest...)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Dead letter eviction failed: %v", err)
	}
}

// List returns the most recent dead letters, newest first.
func (s *DeadLetterStore) List(ctx context.Context, limit int64) ([]model.DeadLetterRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := s.redis.ZRevRange(ctx, dlqZSetKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.DeadLetterRecord{}, nil
	}

	raw, err := s.redis.HMGet(ctx, dlqHashKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]model.DeadLetterRecord, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec model.DeadLetterRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns a single dead letter by task id.
func (s *DeadLetterStore) Get(ctx context.Context, taskID string) (*model.DeadLetterRecord, error) {
	data, err := s.redis.HGet(ctx, dlqHashKey, taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDeadLetterNotFound
		}
		return nil, err
	}

	var rec model.DeadLetterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Remove deletes a dead letter, typically after a successful replay.
func (s *DeadLetterStore) Remove(ctx context.Context, taskID string) error {
	pipe := s.redis.TxPipeline()
	pipe.ZRem(ctx, dlqZSetKey, taskID)
	pipe.HDel(ctx, dlqHashKey, taskID)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear drops every dead letter and reports how many were removed.
func (s *DeadLetterStore) Clear(ctx context.Context) (int64, error) {
	count, err := s.redis.HLen(ctx, dlqHashKey).Result()
	if err != nil {
		return 0, err
	}
	if err := s.redis.Del(ctx, dlqZSetKey, dlqHashKey).Err(); err != nil {
		return 0, err
	}
	return count, nil
}
