package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const retryInterval = 25 * time.Millisecond

// releaseScript deletes the key only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// RedisLocker extends a local section across service instances. The local
// section keeps arrival order within the process; the Redis key keeps other
// instances out while it is held.
type RedisLocker struct {
	client *redis.Client
	local  outbound.ListingLocker
	ttl    time.Duration
	wait   time.Duration
	logger zerolog.Logger
}

type RedisLockerParams struct {
	RedisClient *redis.Client
	Local       outbound.ListingLocker
	TTL         time.Duration
	Wait        time.Duration
	Logger      zerolog.Logger
}

// NewRedisLocker creates a distributed locker
func NewRedisLocker(params RedisLockerParams) *RedisLocker {
	return &RedisLocker{
		client: params.RedisClient,
		local:  params.Local,
		ttl:    params.TTL,
		wait:   params.Wait,
		logger: params.Logger.With().Str("component", "redis_locker").Logger(),
	}
}

func lockKey(listingID uuid.UUID) string {
	return fmt.Sprintf("listing:lock:%s", listingID.String())
}

// Lock acquires the local section, then the Redis key, within one wait budget
func (r *RedisLocker) Lock(ctx context.Context, listingID uuid.UUID) (func(), error) {
	deadline := time.Now().Add(r.wait)

	unlockLocal, err := r.local.Lock(ctx, listingID)
	if err != nil {
		return nil, err
	}

	key := lockKey(listingID)
	token := uuid.New().String()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("failed to acquire listing lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			unlockLocal()
			r.logger.Warn().Str("listing_id", listingID.String()).Msg("Timed out waiting for listing lock")
			return nil, shared.ErrListingBusy
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Error().Err(err).Str("listing_id", listingID.String()).Msg("Failed to release listing lock")
		}
		unlockLocal()
	}, nil
}
