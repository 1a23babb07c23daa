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
	"lapsecam/internal/config"
	"lapsecam/internal/logger"
	"lapsecam/internal/metrics"
	"lapsecam/internal/runner"
	"lapsecam/internal/schedule"
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

	fmt.Println("Capture daemon starting...")
	fmt.Printf("Cameras: %d\n", len(cameras))
	fmt.Printf("Poll cadence: %s\n", cfg.PollSpec)

	client := archive.NewHTTPClient(cfg.ArchiveURL, cfg.ArchiveToken)

	var stateStore *state.Store
	if cfg.StateEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		stateStore = state.NewStore(rdb, cfg.SummaryTTLSuccess, cfg.SummaryTTLFailure)
		fmt.Printf("State backend: %s\n", cfg.RedisURL)
	}

	plan, err := schedule.NewPollPlan(cfg.PollSpec, "")
	if err != nil {
		log.Fatalf("Invalid poll cadence: %v", err)
	}

	d := &daemon{
		cfg:    cfg,
		client: client,
		state:  stateStore,
		log:    logger.Default().WithComponent(logger.ComponentCapture),
	}
	d.cameras = make(map[string]config.Camera, len(cameras))
	for _, cam := range cameras {
		d.cameras[cam.ID] = cam
		d.order = append(d.order, cam.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	d.run(ctx, plan)

	snap := metrics.Default().GetSnapshot()
	d.log.Info("Capture daemon stopped",
		"frames_captured", snap.FramesCaptured,
		"frames_failed", snap.FramesFailed,
		"uptime", snap.Uptime.String())
	log.Println("Capture daemon shut down successfully")
}

type daemon struct {
	cfg     *config.Config
	client  archive.Client
	state   *state.Store
	cameras map[string]config.Camera
	order   []string
	log     logger.Logger
}

// run sleeps until each poll tick and evaluates every camera in order
func (d *daemon) run(ctx context.Context, plan *schedule.PollPlan) {
	d.log.Info("Capture daemon started", "cameras", len(d.order), "poll_spec", plan.Spec())

	for {
		next := plan.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runner.Run(ctx, d.order, d.captureOne)
	}
}

// captureOne evaluates one camera's schedule and exports the due frame
func (d *daemon) captureOne(ctx context.Context, cameraID string) error {
	cam := d.cameras[cameraID]
	now := time.Now()

	frames, err := store.New(filepath.Join(d.cfg.FramesDir, cam.ID))
	if err != nil {
		return err
	}

	last, err := d.lastCapture(ctx, cam, frames)
	if err != nil {
		return err
	}

	slot, due, err := schedule.DueSlot(cam.Schedule, last, cam.Location, now)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	data, err := d.client.ExportFrame(ctx, cam.ID, slot)
	if err != nil {
		metrics.Default().RecordFrameFailed(archive.ClassOf(err))
		d.recordRun(ctx, cam.ID, err)
		return fmt.Errorf("capture failed for camera %s: %w", cam.ID, err)
	}

	date, timeOfDay := store.SlotKey(slot)
	if err := frames.Write(date, timeOfDay, data); err != nil {
		metrics.Default().RecordFrameFailed(archive.ClassUnclassified)
		d.recordRun(ctx, cam.ID, err)
		return err
	}

	metrics.Default().RecordFrameCaptured()
	d.log.Info("Frame captured", "camera_id", cam.ID, "date", date, "time_of_day", timeOfDay)

	if d.state != nil {
		if err := d.state.SetLastCapture(ctx, cam.ID, slot); err != nil {
			d.log.Warn("Failed to persist last capture", "camera_id", cam.ID, "error", err)
		}
	}
	d.recordRun(ctx, cam.ID, nil)
	return nil
}

// lastCapture resolves the previous capture instant from the state
// backend, falling back to the newest stored frame
func (d *daemon) lastCapture(ctx context.Context, cam config.Camera, frames *store.FrameStore) (*time.Time, error) {
	if d.state != nil {
		st, err := d.state.GetCameraState(ctx, cam.ID)
		if err != nil {
			return nil, err
		}
		if !st.LastCapture.IsZero() {
			last := st.LastCapture
			return &last, nil
		}
		return nil, nil
	}

	tz, err := cam.Schedule.TimeLocation()
	if err != nil {
		return nil, err
	}
	last, ok, err := frames.LatestCapture(tz)
	if err != nil || !ok {
		return nil, err
	}
	return &last, nil
}

func (d *daemon) recordRun(ctx context.Context, cameraID string, runErr error) {
	if d.state == nil {
		return
	}
	if err := d.state.RecordRun(ctx, cameraID, time.Now(), runErr); err != nil {
		d.log.Warn("Failed to record run", "camera_id", cameraID, "error", err)
	}
}
