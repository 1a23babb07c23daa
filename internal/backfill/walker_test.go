package backfill

import (
	"context"
	"strings"
	"testing"
	"time"

	"lapsecam/internal/archive"
	"lapsecam/internal/schedule"
	"lapsecam/internal/store"
)

// testNow is 18:00, so today's noon slot is already in the past
var testNow = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

func noonSchedule() schedule.Schedule {
	return schedule.Schedule{Mode: schedule.ModeFixedTime, Times: []string{"12:00"}}
}

// mockArchive returns canned responses and counts calls
type mockArchive struct {
	calls   int
	respond func(call int, cameraID string, at time.Time) ([]byte, error)
}

func (m *mockArchive) ExportFrame(ctx context.Context, cameraID string, at time.Time) ([]byte, error) {
	m.calls++
	return m.respond(m.calls, cameraID, at)
}

func alwaysFail(class archive.Class) *mockArchive {
	return &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		return nil, &archive.ExportError{Class: class, CameraID: cameraID, At: at}
	}}
}

func newTestWalker(t *testing.T, client archive.Client, limits Limits) (*Walker, *store.FrameStore) {
	t.Helper()
	fs, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	w := New("cam", noonSchedule(), nil, fs, client, limits)
	w.SetNow(func() time.Time { return testNow })
	return w, fs
}

func TestStopsAfterThreeNotFoundDays(t *testing.T) {
	client := alwaysFail(archive.ClassNotFound)
	w, _ := newTestWalker(t, client, Limits{})

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DaysScanned != 3 {
		t.Errorf("DaysScanned: got %d, want exactly 3", res.DaysScanned)
	}
	if res.StopReason != StopNotFoundRun {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopNotFoundRun)
	}
	if res.Failed != 3 {
		t.Errorf("Failed: got %d, want 3", res.Failed)
	}
}

func TestStopsAfterConfiguredNoDataDays(t *testing.T) {
	client := alwaysFail(archive.ClassNoData)
	w, _ := newTestWalker(t, client, Limits{StopAfterConsecutiveNoData: 7})

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DaysScanned != 7 {
		t.Errorf("DaysScanned: got %d, want exactly 7", res.DaysScanned)
	}
	if res.StopReason != StopNoDataRun {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopNoDataRun)
	}
}

func TestStopsAfterThreeUnclassifiedFailures(t *testing.T) {
	client := alwaysFail(archive.ClassUnclassified)
	w, _ := newTestWalker(t, client, Limits{})

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DaysScanned != 3 {
		t.Errorf("DaysScanned: got %d, want 3", res.DaysScanned)
	}
	if res.StopReason != StopFailureRun {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopFailureRun)
	}
}

func TestFatalAbortsImmediately(t *testing.T) {
	client := alwaysFail(archive.ClassFatal)
	w, _ := newTestWalker(t, client, Limits{MaxDays: 100})

	res, err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Expected an error for a fatal archive failure")
	}
	if !strings.Contains(err.Error(), "aborted") {
		t.Errorf("Error should report the abort: %v", err)
	}

	if client.calls != 1 {
		t.Errorf("Archive calls: got %d, want exactly 1", client.calls)
	}
	if res.StopReason != StopFatal {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopFatal)
	}
}

func TestMaxDaysBoundsTheWalk(t *testing.T) {
	client := &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		return []byte("frame"), nil
	}}
	w, _ := newTestWalker(t, client, Limits{MaxDays: 5})

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Captured != 5 {
		t.Errorf("Captured: got %d, want 5", res.Captured)
	}
	if res.StopReason != StopMaxDays {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopMaxDays)
	}
}

func TestHardCeilingAlwaysEnforced(t *testing.T) {
	client := &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		return []byte("frame"), nil
	}}
	w, _ := newTestWalker(t, client, Limits{HardCeilingDays: 10}) // MaxDays unbounded

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DaysScanned != 10 {
		t.Errorf("DaysScanned: got %d, want 10", res.DaysScanned)
	}
	if res.StopReason != StopHardCeiling {
		t.Errorf("StopReason: got %s, want %s", res.StopReason, StopHardCeiling)
	}
}

func TestSuccessResetsCounters(t *testing.T) {
	// Two not-found days, one good day, then not-founds again: the
	// reset means the walk survives past day 3
	client := &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		if call == 3 {
			return []byte("frame"), nil
		}
		return nil, &archive.ExportError{Class: archive.ClassNotFound, CameraID: cameraID, At: at}
	}}
	w, _ := newTestWalker(t, client, Limits{})

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Days 1-2 not found, day 3 captured, days 4-6 not found again
	if res.DaysScanned != 6 {
		t.Errorf("DaysScanned: got %d, want 6", res.DaysScanned)
	}
	if res.Captured != 1 {
		t.Errorf("Captured: got %d, want 1", res.Captured)
	}
}

func TestExistingFramesAreSkippedNotRefetched(t *testing.T) {
	// Spec scenario: 5 consecutive days already stored at 12:00
	client := alwaysFail(archive.ClassNotFound)
	w, fs := newTestWalker(t, client, Limits{MaxDays: 5})

	for off := 0; off < 5; off++ {
		date, tod := store.SlotKey(testNow.AddDate(0, 0, -off).Truncate(24 * time.Hour).Add(12 * time.Hour))
		if err := fs.Write(date, tod, []byte("frame")); err != nil {
			t.Fatalf("seed write failed: %v", err)
		}
	}

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Captured != 0 || res.Skipped != 5 || res.Failed != 0 {
		t.Errorf("Got captured=%d skipped=%d failed=%d, want 0/5/0",
			res.Captured, res.Skipped, res.Failed)
	}
	if client.calls != 0 {
		t.Errorf("Archive calls: got %d, want 0", client.calls)
	}
	if len(res.CoveredTimeSlots) != 1 || res.CoveredTimeSlots[0] != "1200" {
		t.Errorf("CoveredTimeSlots: got %v, want [1200]", res.CoveredTimeSlots)
	}
}

func TestFutureSlotsAreNotAttempted(t *testing.T) {
	// At 09:00 today's noon slot is in the future; the walk starts
	// with yesterday's noon
	morning := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	var attempted []time.Time
	client := &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		attempted = append(attempted, at)
		return []byte("frame"), nil
	}}

	fs, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	w := New("cam", noonSchedule(), nil, fs, client, Limits{MaxDays: 2})
	w.SetNow(func() time.Time { return morning })

	res, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Captured != 1 {
		t.Fatalf("Captured: got %d, want 1", res.Captured)
	}
	want := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	if len(attempted) != 1 || !attempted[0].Equal(want) {
		t.Errorf("Attempted slots: got %v, want [%v]", attempted, want)
	}
}

func TestConfigErrorFailsFast(t *testing.T) {
	client := &mockArchive{respond: func(call int, cameraID string, at time.Time) ([]byte, error) {
		return []byte("frame"), nil
	}}

	fs, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	sunriseNoLocation := schedule.Schedule{Mode: schedule.ModeSunriseSunset, CaptureSunrise: true}
	w := New("cam", sunriseNoLocation, nil, fs, client, Limits{})
	w.SetNow(func() time.Time { return testNow })

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("Expected a configuration error")
	}
	if client.calls != 0 {
		t.Errorf("Archive must not be called on config error, got %d calls", client.calls)
	}
}
