package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock is a Redis-based lock preventing two processes from running
// a backfill or assembly pass for the same camera at once
type RunLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// AcquireRunLock attempts to take the per-camera run lock. Returns nil
// without error when another process already holds it.
func AcquireRunLock(ctx context.Context, client *redis.Client, cameraID string, ttl time.Duration) (*RunLock, error) {
	key := fmt.Sprintf("lapsecam:run_lock:%s", cameraID)
	token := uuid.New().String()

	acquired, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, nil
	}

	return &RunLock{client: client, key: key, token: token, ttl: ttl}, nil
}

// Release deletes the lock, but only if this process still owns it.
// The check-and-delete is atomic via a Lua script.
func (l *RunLock) Release(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	_, err := l.client.Eval(ctx, script, []string{l.key}, l.token).Result()
	return err
}

// Extend pushes the lock TTL out for a long backfill. Fails if the
// lock has expired and been taken by someone else.
func (l *RunLock) Extend(ctx context.Context, ttl time.Duration) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, script, []string{l.key}, l.token, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("run lock no longer owned by this process")
	}

	l.ttl = ttl
	return nil
}

// Key returns the Redis key for this lock
func (l *RunLock) Key() string {
	return l.key
}
