// Package dlock provides a Redis-backed mutex shared by every instance of the
// reservation service.
//
// A lock is a Redis hash keyed by the lock name. Each field is an owner token
// and its value is the number of times that owner has acquired the lock, so an
// owner that re-enters a lock it already holds does not deadlock itself. The
// key carries a PEXPIRE lease: a holder that crashes loses the lock once the
// lease runs out.
//
//	lock, err := locker.Acquire(ctx, "car:lock:42", 5*time.Second, 10*time.Second)
//	if err != nil { ... }
//	defer lock.Release(context.WithoutCancel(ctx))
package dlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired is returned when the wait timeout elapses before the lock
	// becomes free.
	ErrNotAcquired = errors.New("dlock: lock not acquired")
	// ErrNotHeld is returned by Release and Refresh when the caller no longer
	// owns the lock, typically because the lease expired.
	ErrNotHeld = errors.New("dlock: lock not held by owner")
)

const defaultRetryInterval = 50 * time.Millisecond

// acquireScript grants the lock when the key is free or already owned by
// ARGV[2]. It returns -1 on success, otherwise the remaining lease in ms.
var acquireScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 or redis.call('hexists', KEYS[1], ARGV[2]) == 1 then
	redis.call('hincrby', KEYS[1], ARGV[2], 1)
	redis.call('pexpire', KEYS[1], ARGV[1])
	return -1
end
local ttl = redis.call('pttl', KEYS[1])
if ttl < 0 then
	ttl = 0
end
return ttl
`)

// releaseScript drops one hold of ARGV[1]. It returns -1 when ARGV[1] is not
// an owner, 0 when the key was deleted and the remaining hold count otherwise.
var releaseScript = redis.NewScript(`
if redis.call('hexists', KEYS[1], ARGV[1]) == 0 then
	return -1
end
local n = redis.call('hincrby', KEYS[1], ARGV[1], -1)
if n > 0 then
	redis.call('pexpire', KEYS[1], ARGV[2])
	return n
end
redis.call('del', KEYS[1])
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call('hexists', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('pexpire', KEYS[1], ARGV[2])
return 1
`)

// Locker hands out named locks.
type Locker struct {
	client        redis.UniversalClient
	prefix        string
	retryInterval time.Duration
}

type Option func(*Locker)

// WithPrefix namespaces every lock key.
func WithPrefix(prefix string) Option {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithRetryInterval sets how often a blocked Acquire polls Redis.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client:        client,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks for at most wait until key is free, then holds it for lease.
func (l *Locker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (*Lock, error) {
	lock := &Lock{
		client: l.client,
		key:    l.prefix + key,
		owner:  ownerFromContext(ctx),
		lease:  lease,
	}

	deadline := time.Now().Add(wait)
	for {
		ttl, err := acquireScript.Run(ctx, l.client, []string{lock.key}, lease.Milliseconds(), lock.owner).Int64()
		if err != nil {
			return nil, fmt.Errorf("dlock: acquire %q: %w", key, err)
		}
		if ttl == -1 {
			return lock, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotAcquired, key)
		}

		sleep := l.retryInterval
		if ttl > 0 && time.Duration(ttl)*time.Millisecond < sleep {
			sleep = time.Duration(ttl) * time.Millisecond
		}
		if sleep > remaining {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dlock: acquire %q: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// Lock is a held lease on a key.
type Lock struct {
	client redis.UniversalClient
	key    string
	owner  string
	lease  time.Duration
}

func (l *Lock) Key() string { return l.key }

// Release gives up one hold on the lock. Releasing a lock whose lease has
// already expired, or releasing twice, returns ErrNotHeld.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner, l.lease.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("dlock: release %q: %w", l.key, err)
	}
	if n == -1 {
		return fmt.Errorf("%w: %q", ErrNotHeld, l.key)
	}
	return nil
}

// Refresh restarts the lease of a lock that is still held.
func (l *Lock) Refresh(ctx context.Context) error {
	ok, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.owner, l.lease.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("dlock: refresh %q: %w", l.key, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %q", ErrNotHeld, l.key)
	}
	return nil
}

// Held reports whether this owner still holds the lock.
func (l *Lock) Held(ctx context.Context) (bool, error) {
	held, err := l.client.HExists(ctx, l.key, l.owner).Result()
	if err != nil {
		return false, fmt.Errorf("dlock: check %q: %w", l.key, err)
	}
	return held, nil
}

type ownerKey struct{}

// WithOwner binds an owner token to ctx. Acquires made with the returned
// context on a key the owner already holds succeed immediately and must be
// balanced by the same number of releases.
func WithOwner(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ownerKey{}).(string); ok {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, uuid.NewString())
}

func ownerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok {
		return owner
	}
	return uuid.NewString()
}
