package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-management/internal/config"
)

// ErrLockBusy is returned when another request holds the lock for longer
// than the configured wait.
var ErrLockBusy = errors.New("another booking for this table is in progress")

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// Locker serializes bookings per key with SET NX PX.  Without Redis it
// hands out no-op locks and the database row locks alone guard the write.
// The same applies when Redis stops answering mid-run.
type Locker struct {
	cfg  config.LockConfig
	rdb  *redis.Client
	poll time.Duration
	log  *log.Logger
}

func NewLocker(cfg config.LockConfig, rdb *redis.Client) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return &Locker{cfg: cfg, rdb: rdb, poll: 25 * time.Millisecond, log: log.New("lock")}
}

// Acquire blocks until the lock for key is held, the wait runs out
// (ErrLockBusy) or ctx is done.  The returned func releases the lock.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || !l.cfg.Enabled || l.rdb == nil {
		return func() {}, nil
	}
	full := l.cfg.Prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.cfg.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.log.Warnf("redis lock %s unavailable, relying on row locks: %v", full, err)
			return func() {}, nil
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{full}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
