package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"lapsecam/internal/archive"
	"lapsecam/internal/backfill"
	"lapsecam/internal/config"
	"lapsecam/internal/logger"
	"lapsecam/internal/metrics"
	"lapsecam/internal/runner"
	"lapsecam/internal/state"
	"lapsecam/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetDefault(appLog)
	defer appLog.Close()

	cameras, err := config.LoadCameras(cfg.CamerasFile)
	if err != nil {
		log.Fatalf("Failed to load camera inventory: %v", err)
	}

	fmt.Println("Backfill starting...")
	fmt.Printf("Cameras: %d\n", len(cameras))
	if cfg.Backfill.MaxDays > 0 {
		fmt.Printf("Max days: %d\n", cfg.Backfill.MaxDays)
	} else {
		fmt.Printf("Max days: unbounded (ceiling %d)\n", cfg.Backfill.HardCeilingDays)
	}

	client := archive.NewHTTPClient(cfg.ArchiveURL, cfg.ArchiveToken)

	var stateStore *state.Store
	var rdb *redis.Client
	if cfg.StateEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		stateStore = state.NewStore(rdb, cfg.SummaryTTLSuccess, cfg.SummaryTTLFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, finishing current camera...", sig)
		cancel()
	}()

	byID := make(map[string]config.Camera, len(cameras))
	order := make([]string, 0, len(cameras))
	for _, cam := range cameras {
		byID[cam.ID] = cam
		order = append(order, cam.ID)
	}

	results := runner.Run(ctx, order, func(ctx context.Context, cameraID string) error {
		return backfillOne(ctx, cfg, byID[cameraID], client, stateStore, rdb)
	})

	snap := metrics.Default().GetSnapshot()
	logger.Default().WithComponent(logger.ComponentBackfill).Info("Backfill run complete",
		"frames_captured", snap.FramesCaptured,
		"frames_skipped", snap.FramesSkipped,
		"frames_failed", snap.FramesFailed,
		"failures_by_class", snap.FailuresByClass)

	if results.Failed() {
		appLog.Close()
		os.Exit(1)
	}
	log.Println("Backfill finished successfully")
}

// backfillOne runs one camera's walk, guarded by the per-camera run
// lock when the state backend is enabled
func backfillOne(ctx context.Context, cfg *config.Config, cam config.Camera, client archive.Client, stateStore *state.Store, rdb *redis.Client) error {
	if rdb != nil {
		lock, err := state.AcquireRunLock(ctx, rdb, cam.ID, cfg.RunLockTTL)
		if err != nil {
			return err
		}
		if lock == nil {
			return fmt.Errorf("camera %s is already being backfilled by another process", cam.ID)
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				logger.Default().WithComponent(logger.ComponentBackfill).
					Warn("Failed to release run lock", "camera_id", cam.ID, "error", err)
			}
		}()
	}

	frames, err := store.New(filepath.Join(cfg.FramesDir, cam.ID))
	if err != nil {
		return err
	}

	started := time.Now()
	walker := backfill.New(cam.ID, cam.Schedule, cam.Location, frames, client, cfg.Backfill)
	res, runErr := walker.Run(ctx)

	if stateStore != nil {
		sum := state.RunSummary{
			CameraID:   cam.ID,
			Kind:       "backfill",
			StartedAt:  started,
			FinishedAt: time.Now(),
			Captured:   res.Captured,
			Skipped:    res.Skipped,
			Failed:     res.Failed,
		}
		if runErr != nil {
			sum.Error = runErr.Error()
		}
		if err := stateStore.SaveRunSummary(ctx, sum); err != nil {
			logger.Default().WithComponent(logger.ComponentBackfill).
				Warn("Failed to save run summary", "camera_id", cam.ID, "error", err)
		}
		if err := stateStore.RecordRun(ctx, cam.ID, time.Now(), runErr); err != nil {
			logger.Default().WithComponent(logger.ComponentBackfill).
				Warn("Failed to record run", "camera_id", cam.ID, "error", err)
		}
	}

	return runErr
}
