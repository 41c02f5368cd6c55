package inflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 2 * time.Minute

// leaseSlack covers browser start-up and the work between timed steps.
const leaseSlack = 30 * time.Second

// LeaseTTL returns a lease long enough to outlive a scan bounded by
// scanBudget, and never shorter than DefaultTTL.
func LeaseTTL(scanBudget time.Duration) time.Duration {
	if ttl := scanBudget + leaseSlack; ttl > DefaultTTL {
		return ttl
	}
	return DefaultTTL
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lease cannot release a later holder.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// Redis is a Guard shared by every process using the same Redis server.
type Redis struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
	// NewToken returns a unique holder token. Defaults to a random UUID.
	NewToken func() string
}

// NewRedis connects to addr lazily; no command is sent until first use.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		Prefix: "scamdar:inflight:",
		TTL:    DefaultTTL,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token := uuid.NewString()
	if r.NewToken != nil {
		token = r.NewToken()
	}
	k := r.Prefix + key
	ok, err := r.Client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := r.Client.Eval(rctx, releaseScript, []string{k}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", k).Msg("inflight release failed; lease will expire")
			}
		})
	}, nil
}
