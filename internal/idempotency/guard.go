// Package idempotency deduplicates generation requests by client-supplied
// key so a retried submit returns the original response instead of paying
// for a second pipeline run.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyTTL = time.Hour

// Guard is the redis-backed idempotency cache. It stores the serialized
// response of the first submission and replays those bytes unchanged on a
// hit. It fails open: if redis is unreachable the request proceeds as a
// fresh submission, trading a possible duplicate for availability.
type Guard struct {
	redis *redis.Client
}

func NewGuard(redisClient *redis.Client) *Guard {
	return &Guard{redis: redisClient}
}

func cacheKey(key string) string { return fmt.Sprintf("idempotency:%s", key) }

// Check looks up the cached response for the key. Returns (nil, false) when
// the key is empty, unseen, or redis is unavailable.
func (g *Guard) Check(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	data, err := g.redis.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Idempotency lookup failed for key %s, proceeding: %v", key, err)
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Remember stores the serialized response for the key. Write failures are
// logged and swallowed so a cache outage never fails the request itself.
func (g *Guard) Remember(ctx context.Context, key string, response []byte) {
	if key == "" || len(response) == 0 {
		return
	}

	if err := g.redis.Set(ctx, cacheKey(key), response, keyTTL).Err(); err != nil {
		log.Printf("Idempotency store failed for key %s: %v", key, err)
	}
}
