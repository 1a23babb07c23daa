// Package runner processes cameras strictly one after another. A
// failure on one camera never prevents attempting the rest, but the
// aggregate outcome reports whether any camera failed.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"lapsecam/internal/logger"
)

// CameraTask is the per-camera unit of work
type CameraTask func(ctx context.Context, cameraID string) error

// CameraResult is the captured outcome for one camera
type CameraResult struct {
	CameraID string
	Err      error
}

// Results is the outcome of one sequential pass
type Results []CameraResult

// Failed reports whether any camera's task failed
func (rs Results) Failed() bool {
	for _, r := range rs {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the task for each camera in order. Cameras run one at
// a time so network, disk and subprocess load never compound. Panics
// inside a task are isolated to that camera.
func Run(ctx context.Context, cameraIDs []string, task CameraTask) Results {
	log := logger.Default()
	results := make(Results, 0, len(cameraIDs))

	for _, id := range cameraIDs {
		if ctx.Err() != nil {
			results = append(results, CameraResult{CameraID: id, Err: ctx.Err()})
			continue
		}

		err := runOne(ctx, id, task)
		if err != nil {
			log.Error("Camera run failed", "camera_id", id, "error", err)
		}
		results = append(results, CameraResult{CameraID: id, Err: err})
	}

	return results
}

func runOne(ctx context.Context, cameraID string, task CameraTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := string(debug.Stack())
			logger.Default().Error(
				"Recovered from panic while processing camera",
				"camera_id", cameraID,
				"panic_value", r,
				"stack_trace", stackTrace)
			err = fmt.Errorf("panic processing camera %s: %v", cameraID, r)
		}
	}()

	return task(ctx, cameraID)
}
