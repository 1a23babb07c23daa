package runner

import (
	"context"
	"errors"
	"testing"
)

func TestRunProcessesAllCamerasInOrder(t *testing.T) {
	var seen []string
	results := Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) error {
		seen = append(seen, id)
		return nil
	})

	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Errorf("Cameras processed out of order: %v", seen)
	}
	if results.Failed() {
		t.Error("No failures expected")
	}
}

func TestFailureDoesNotStopRemainingCameras(t *testing.T) {
	var seen []string
	results := Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) error {
		seen = append(seen, id)
		if id == "b" {
			return errors.New("archive down")
		}
		return nil
	})

	if len(seen) != 3 {
		t.Fatalf("All cameras must be attempted, got %v", seen)
	}
	if !results.Failed() {
		t.Error("Aggregate outcome must report the failure")
	}
	if results[0].Err != nil || results[1].Err == nil || results[2].Err != nil {
		t.Errorf("Per-camera errors wrong: %+v", results)
	}
}

func TestPanicIsIsolatedToOneCamera(t *testing.T) {
	var seen []string
	results := Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) error {
		seen = append(seen, id)
		if id == "a" {
			panic("boom")
		}
		return nil
	})

	if len(seen) != 3 {
		t.Fatalf("Panic must not stop the pass, got %v", seen)
	}
	if results[0].Err == nil {
		t.Error("Panicking camera must report an error")
	}
	if results[1].Err != nil || results[2].Err != nil {
		t.Error("Other cameras must be unaffected")
	}
}

func TestCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var seen []string
	results := Run(ctx, []string{"a", "b"}, func(ctx context.Context, id string) error {
		seen = append(seen, id)
		cancel()
		return nil
	})

	if len(seen) != 1 {
		t.Errorf("Only the first camera should run after cancellation, got %v", seen)
	}
	if !results.Failed() {
		t.Error("Skipped cameras count as failed")
	}
}
