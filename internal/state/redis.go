// Package state persists per-camera capture bookkeeping in Redis. It is
// optional: without a configured backend the daemon falls back to the
// frame store's newest file for last-capture tracking.
package state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lapsecam/internal/logger"
)

// CameraState is the persisted bookkeeping for one camera
type CameraState struct {
	CameraID    string
	LastCapture time.Time
	LastRun     time.Time
	LastError   string
	RunCount    int64
}

// RunSummary is the persisted outcome of one run for one camera
type RunSummary struct {
	CameraID   string
	Kind       string // "capture", "backfill" or "assemble"
	StartedAt  time.Time
	FinishedAt time.Time
	Captured   int
	Skipped    int
	Failed     int
	Error      string
}

// Store is a Redis-backed state store. Successful run summaries expire
// quickly; failures are kept longer for inspection.
type Store struct {
	client     *redis.Client
	successTTL time.Duration
	failureTTL time.Duration
	log        logger.Logger
}

// NewStore creates a state store with the given summary TTLs
func NewStore(client *redis.Client, successTTL, failureTTL time.Duration) *Store {
	return &Store{
		client:     client,
		successTTL: successTTL,
		failureTTL: failureTTL,
		log:        logger.Default().WithComponent(logger.ComponentState),
	}
}

func cameraKey(cameraID string) string {
	return fmt.Sprintf("lapsecam:cameras:%s", cameraID)
}

// GetCameraState retrieves a camera's state, returning a zero-valued
// state when the camera has never been seen
func (s *Store) GetCameraState(ctx context.Context, cameraID string) (*CameraState, error) {
	result, err := s.client.HGetAll(ctx, cameraKey(cameraID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get camera state: %w", err)
	}

	state := &CameraState{CameraID: cameraID}
	if len(result) == 0 {
		return state, nil
	}

	if v, ok := result["last_capture"]; ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			state.LastCapture = parsed
		}
	}
	if v, ok := result["last_run"]; ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			state.LastRun = parsed
		}
	}
	if v, ok := result["last_error"]; ok {
		state.LastError = v
	}
	if v, ok := result["run_count"]; ok && v != "" {
		if count, err := strconv.ParseInt(v, 10, 64); err == nil {
			state.RunCount = count
		}
	}

	return state, nil
}

// SetLastCapture records the instant of a successful capture
func (s *Store) SetLastCapture(ctx context.Context, cameraID string, at time.Time) error {
	err := s.client.HSet(ctx, cameraKey(cameraID),
		"last_capture", at.Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("failed to set last capture: %w", err)
	}
	return nil
}

// RecordRun updates run bookkeeping after a camera's run finishes.
// The error field is cleared on success.
func (s *Store) RecordRun(ctx context.Context, cameraID string, finishedAt time.Time, runErr error) error {
	key := cameraKey(cameraID)

	fields := map[string]interface{}{
		"last_run": finishedAt.Format(time.RFC3339),
	}
	if runErr != nil {
		fields["last_error"] = runErr.Error()
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	if runErr == nil {
		pipe.HDel(ctx, key, "last_error")
	}
	pipe.HIncrBy(ctx, key, "run_count", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// SaveRunSummary stores the latest run summary for a camera and kind
func (s *Store) SaveRunSummary(ctx context.Context, sum RunSummary) error {
	key := fmt.Sprintf("lapsecam:runs:%s:%s", sum.CameraID, sum.Kind)

	data := map[string]interface{}{
		"started_at":  sum.StartedAt.Format(time.RFC3339),
		"finished_at": sum.FinishedAt.Format(time.RFC3339),
		"captured":    sum.Captured,
		"skipped":     sum.Skipped,
		"failed":      sum.Failed,
	}
	if sum.Error != "" {
		data["error"] = sum.Error
	}

	ttl := s.successTTL
	if sum.Error != "" {
		ttl = s.failureTTL
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// GetRunSummary retrieves the latest summary for a camera and kind,
// or nil if none is stored (or it has expired)
func (s *Store) GetRunSummary(ctx context.Context, cameraID, kind string) (*RunSummary, error) {
	key := fmt.Sprintf("lapsecam:runs:%s:%s", cameraID, kind)

	data, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	sum := &RunSummary{CameraID: cameraID, Kind: kind}
	if v, ok := data["started_at"]; ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			sum.StartedAt = parsed
		}
	}
	if v, ok := data["finished_at"]; ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			sum.FinishedAt = parsed
		}
	}
	if v, ok := data["captured"]; ok {
		sum.Captured, _ = strconv.Atoi(v)
	}
	if v, ok := data["skipped"]; ok {
		sum.Skipped, _ = strconv.Atoi(v)
	}
	if v, ok := data["failed"]; ok {
		sum.Failed, _ = strconv.Atoi(v)
	}
	if v, ok := data["error"]; ok {
		sum.Error = v
	}

	return sum, nil
}
