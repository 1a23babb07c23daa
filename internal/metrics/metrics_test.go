package metrics

import (
	"testing"

	"lapsecam/internal/archive"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.RecordFrameCaptured()
	c.RecordFrameCaptured()
	c.RecordFrameSkipped()
	c.RecordFrameFailed(archive.ClassNotFound)
	c.RecordFrameFailed(archive.ClassNoData)
	c.RecordFrameFailed(archive.ClassNoData)
	c.RecordVideoBuilt()
	c.RecordVideoReused()
	c.RecordVideoFailed()

	s := c.GetSnapshot()

	if s.FramesCaptured != 2 {
		t.Errorf("FramesCaptured: got %d, want 2", s.FramesCaptured)
	}
	if s.FramesSkipped != 1 {
		t.Errorf("FramesSkipped: got %d, want 1", s.FramesSkipped)
	}
	if s.FramesFailed != 3 {
		t.Errorf("FramesFailed: got %d, want 3", s.FramesFailed)
	}
	if s.FailuresByClass[archive.ClassNoData] != 2 {
		t.Errorf("NoData failures: got %d, want 2", s.FailuresByClass[archive.ClassNoData])
	}
	if s.FailuresByClass[archive.ClassNotFound] != 1 {
		t.Errorf("NotFound failures: got %d, want 1", s.FailuresByClass[archive.ClassNotFound])
	}
	if s.VideosBuilt != 1 || s.VideosReused != 1 || s.VideosFailed != 1 {
		t.Errorf("Video counters: got %d/%d/%d, want 1/1/1", s.VideosBuilt, s.VideosReused, s.VideosFailed)
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector()
	c.RecordFrameCaptured()
	c.RecordFrameFailed(archive.ClassFatal)
	c.Reset()

	s := c.GetSnapshot()
	if s.FramesCaptured != 0 || s.FramesFailed != 0 || len(s.FailuresByClass) != 0 {
		t.Errorf("Reset did not clear counters: %+v", s)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.RecordFrameFailed(archive.ClassNoData)

	s := c.GetSnapshot()
	s.FailuresByClass[archive.ClassNoData] = 99

	if got := c.GetSnapshot().FailuresByClass[archive.ClassNoData]; got != 1 {
		t.Errorf("Snapshot mutation leaked into collector: got %d, want 1", got)
	}
}
