package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
)

var ErrHeld = errors.New("lock is held by another owner")

// Locker guards work that must not run concurrently across replicas,
// such as the auto-confirmation sweep.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// releaseScript deletes the key only when it still carries our token.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLocker struct {
	client rueidis.Client
	prefix string
}

func NewRedisLocker(client rueidis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	name := l.prefix + key

	cmd := l.client.B().Set().Key(name).Value(token).Nx().Px(ttl).Build()
	if err := l.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrHeld
		}
		return nil, err
	}

	release := func(ctx context.Context) error {
		return releaseScript.Exec(ctx, l.client, []string{name}, []string{token}).Error()
	}
	return release, nil
}

// LocalLocker is the single-process fallback used when no Redis is configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, ErrHeld
	}
	until := now.Add(ttl)
	l.held[key] = until

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(until) {
			delete(l.held, key)
		}
		return nil
	}
	return release, nil
}

// New picks the Redis locker when a client is available.
func New(client rueidis.Client) Locker {
	if client == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(client, "mandadito:lock:")
}
