package video

import (
	"testing"

	"lapsecam/internal/store"
)

func frame(date, tod string) store.Frame {
	return store.Frame{Date: date, TimeOfDay: tod, Path: "/frames/" + date + "_" + tod + ".jpg"}
}

func TestDenseDayBecomesDailyVideo(t *testing.T) {
	analysis := Analyze([]store.Frame{
		frame("2024-06-01", "1800"),
		frame("2024-06-01", "0600"),
		frame("2024-06-01", "1200"),
	})

	if len(analysis.DailyVideos) != 1 {
		t.Fatalf("DailyVideos: got %d, want 1", len(analysis.DailyVideos))
	}
	if len(analysis.TimeGroups) != 0 {
		t.Fatalf("TimeGroups: got %d, want 0", len(analysis.TimeGroups))
	}

	g := analysis.DailyVideos[0]
	if g.Date != "2024-06-01" {
		t.Errorf("Date: got %s", g.Date)
	}
	want := []string{"0600", "1200", "1800"}
	for i, tod := range want {
		if g.Frames[i].TimeOfDay != tod {
			t.Errorf("Frame %d: got %s, want %s (ascending by time-of-day)", i, g.Frames[i].TimeOfDay, tod)
		}
	}
}

func TestSparseDayJoinsTimeGroups(t *testing.T) {
	analysis := Analyze([]store.Frame{
		frame("2024-06-01", "0800"),
		frame("2024-06-01", "1600"),
	})

	if len(analysis.DailyVideos) != 0 {
		t.Fatalf("DailyVideos: got %d, want 0 for a two-frame day", len(analysis.DailyVideos))
	}
	if len(analysis.TimeGroups) != 2 {
		t.Fatalf("TimeGroups: got %d, want 2", len(analysis.TimeGroups))
	}
	if analysis.TimeGroups[0].TimeOfDay != "0800" || analysis.TimeGroups[1].TimeOfDay != "1600" {
		t.Errorf("TimeGroups not ordered by time-of-day: %v", analysis.TimeGroups)
	}
}

func TestOneFramePerDayBecomesOneTimeGroup(t *testing.T) {
	// The classic noon-timelapse regime: five days, one frame each
	analysis := Analyze([]store.Frame{
		frame("2024-06-03", "1200"),
		frame("2024-06-01", "1200"),
		frame("2024-06-05", "1200"),
		frame("2024-06-02", "1200"),
		frame("2024-06-04", "1200"),
	})

	if len(analysis.TimeGroups) != 1 {
		t.Fatalf("TimeGroups: got %d, want 1", len(analysis.TimeGroups))
	}
	g := analysis.TimeGroups[0]
	if g.TimeOfDay != "1200" {
		t.Errorf("TimeOfDay: got %s", g.TimeOfDay)
	}
	if len(g.Frames) != 5 {
		t.Fatalf("Frames: got %d, want 5", len(g.Frames))
	}
	for i := 1; i < len(g.Frames); i++ {
		if g.Frames[i-1].Date >= g.Frames[i].Date {
			t.Errorf("Frames not ascending by date at %d: %s >= %s", i, g.Frames[i-1].Date, g.Frames[i].Date)
		}
	}
}

func TestMixedDensities(t *testing.T) {
	analysis := Analyze([]store.Frame{
		// dense day
		frame("2024-06-01", "0600"),
		frame("2024-06-01", "1200"),
		frame("2024-06-01", "1800"),
		// sparse days
		frame("2024-06-02", "1200"),
		frame("2024-06-03", "1200"),
		frame("2024-06-03", "1800"),
	})

	if len(analysis.DailyVideos) != 1 || analysis.DailyVideos[0].Date != "2024-06-01" {
		t.Fatalf("DailyVideos: got %+v", analysis.DailyVideos)
	}
	if len(analysis.TimeGroups) != 2 {
		t.Fatalf("TimeGroups: got %d, want 2", len(analysis.TimeGroups))
	}
	if len(analysis.TimeGroups[0].Frames) != 2 {
		t.Errorf("1200 group: got %d frames, want 2", len(analysis.TimeGroups[0].Frames))
	}
	if len(analysis.TimeGroups[1].Frames) != 1 {
		t.Errorf("1800 group: got %d frames, want 1", len(analysis.TimeGroups[1].Frames))
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	analysis := Analyze(nil)
	if len(analysis.DailyVideos) != 0 || len(analysis.TimeGroups) != 0 {
		t.Errorf("Expected empty analysis, got %+v", analysis)
	}
}
