package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"lapsecam/internal/config"
	"lapsecam/internal/logger"
	"lapsecam/internal/metrics"
	"lapsecam/internal/runner"
	"lapsecam/internal/store"
	"lapsecam/internal/video"
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

	encoder := video.NewFFmpegEncoder()
	if err := encoder.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println("Assembly starting...")
	fmt.Printf("Cameras: %d\n", len(cameras))

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
		return assembleOne(ctx, cfg, byID[cameraID], encoder)
	})

	snap := metrics.Default().GetSnapshot()
	logger.Default().WithComponent(logger.ComponentAssembler).Info("Assembly run complete",
		"videos_built", snap.VideosBuilt,
		"videos_reused", snap.VideosReused,
		"videos_failed", snap.VideosFailed)

	if results.Failed() || snap.VideosFailed > 0 {
		appLog.Close()
		os.Exit(1)
	}
	log.Println("Assembly finished successfully")
}

// assembleOne analyzes one camera's frame store and builds every
// artifact the distribution calls for
func assembleOne(ctx context.Context, cfg *config.Config, cam config.Camera, encoder video.Encoder) error {
	frames, err := store.New(filepath.Join(cfg.FramesDir, cam.ID))
	if err != nil {
		return err
	}
	all, err := frames.ListAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		logger.Default().WithComponent(logger.ComponentAssembler).
			Info("No frames stored, nothing to assemble", "camera_id", cam.ID)
		return nil
	}

	assembler, err := video.NewAssembler(filepath.Join(cfg.VideosDir, cam.ID), encoder)
	if err != nil {
		return err
	}

	settings := cfg.Video
	if cam.Video != nil {
		settings = *cam.Video
	}

	analysis := video.Analyze(all)
	logger.Default().WithComponent(logger.ComponentAssembler).Info("Assembly plan",
		"camera_id", cam.ID,
		"frames", len(all),
		"daily_videos", len(analysis.DailyVideos),
		"time_groups", len(analysis.TimeGroups))

	assembler.BuildAll(ctx, analysis, settings)
	return nil
}
