package minter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jfmyers9/wrapped/internal/journal"
	"github.com/redis/go-redis/v9"
)

// Guard admits one mint per key at a time.
type Guard interface {
	// Acquire claims key or fails with ErrMintInProgress. The returned
	// function releases the claim.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard guards mints within a single process.
type LocalGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewLocalGuard creates an empty LocalGuard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{active: make(map[string]struct{})}
}

// Acquire implements Guard.
func (g *LocalGuard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[key]; ok {
		return nil, ErrMintInProgress
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}

// DefaultLockTTL bounds how long a crashed process can hold a lock.
const DefaultLockTTL = 10 * time.Minute

const lockPrefix = "wrapped:mint:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard guards mints across processes sharing a Redis server.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a RedisGuard. A non-positive ttl uses DefaultLockTTL.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockPrefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, lockKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("minter: failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrMintInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, g.client, []string{lockKey}, token).Err()
		})
	}, nil
}

// Locker holds expiring named locks. *journal.Journal satisfies it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// JournalGuard guards mints across processes sharing a journal database.
type JournalGuard struct {
	locker Locker
	ttl    time.Duration
}

// NewJournalGuard creates a JournalGuard. A non-positive ttl uses
// DefaultLockTTL.
func NewJournalGuard(locker Locker, ttl time.Duration) *JournalGuard {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &JournalGuard{locker: locker, ttl: ttl}
}

// Acquire implements Guard.
func (g *JournalGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockPrefix + key

	token, err := g.locker.Lock(ctx, lockKey, g.ttl)
	if errors.Is(err, journal.ErrLocked) {
		return nil, ErrMintInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("minter: failed to acquire lock: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = g.locker.Unlock(ctx, lockKey, token)
		})
	}, nil
}
