// Package backfill walks backward through calendar days, fetching
// missing frames from the archive and deciding adaptively when the edge
// of retention has been reached.
package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lapsecam/internal/archive"
	"lapsecam/internal/logger"
	"lapsecam/internal/metrics"
	"lapsecam/internal/schedule"
	"lapsecam/internal/store"
)

const (
	// DefaultHardCeilingDays is the absolute safety ceiling on how far
	// back a walk may go, enforced even for unbounded walks
	DefaultHardCeilingDays = 365

	// DefaultStopAfterConsecutiveNoData is the default run of no-data
	// failures treated as end of retention
	DefaultStopAfterConsecutiveNoData = 7

	// maxConsecutiveNotFound and maxConsecutiveOtherFailures are fixed
	// while the no-data threshold is tunable. Kept as separate named
	// constants; whether the asymmetry is intentional is an open
	// product question.
	maxConsecutiveNotFound      = 3
	maxConsecutiveOtherFailures = 3
)

// Limits bounds a backfill walk
type Limits struct {
	// MaxDays caps the walk; 0 means unbounded (the hard ceiling
	// still applies)
	MaxDays int
	// HardCeilingDays is the absolute ceiling; defaults to 365
	HardCeilingDays int
	// StopAfterConsecutiveNoData defaults to 7
	StopAfterConsecutiveNoData int
}

func (l Limits) withDefaults() Limits {
	if l.HardCeilingDays <= 0 {
		l.HardCeilingDays = DefaultHardCeilingDays
	}
	if l.StopAfterConsecutiveNoData <= 0 {
		l.StopAfterConsecutiveNoData = DefaultStopAfterConsecutiveNoData
	}
	return l
}

// FrameStore is the storage surface the walker needs
type FrameStore interface {
	Exists(date, timeOfDay string) bool
	Write(date, timeOfDay string, data []byte) error
}

// Result summarizes one backfill walk
type Result struct {
	Captured    int
	Skipped     int
	Failed      int
	DaysScanned int
	// CoveredTimeSlots are the distinct time-of-day values for which at
	// least one frame exists after the walk, for the assembly stage
	CoveredTimeSlots []string
	// StopReason names why the walk ended
	StopReason string
}

// Stop reasons
const (
	StopMaxDays     = "max_days"
	StopHardCeiling = "hard_ceiling"
	StopNotFoundRun = "not_found_run"
	StopNoDataRun   = "no_data_run"
	StopFailureRun  = "failure_run"
	StopFatal       = "fatal"
)

// walkState is the per-run counter state, discarded when the walk ends.
// The three counters are independent: conflating them either walks too
// far into nonexistent history or stops too early on recoverable days.
type walkState struct {
	consecutiveNoData   int
	consecutiveNotFound int
	consecutiveFailures int
}

func (s *walkState) success() {
	s.consecutiveNoData = 0
	s.consecutiveNotFound = 0
	s.consecutiveFailures = 0
}

// failure applies one classified non-fatal failure. Not-found and
// no-data feed the classified counters; only unclassified failures feed
// the raw counter, so a long no-data run is judged by its own threshold.
func (s *walkState) failure(class archive.Class) {
	switch class {
	case archive.ClassNotFound:
		s.consecutiveNotFound++
		s.consecutiveNoData++
	case archive.ClassNoData:
		s.consecutiveNoData++
		s.consecutiveNotFound = 0
	default:
		s.consecutiveFailures++
		s.consecutiveNoData = 0
		s.consecutiveNotFound = 0
	}
}

// Walker performs one camera's backfill pass. Requests are issued one
// at a time; a concurrent walk would make the consecutive counters
// ill-defined.
type Walker struct {
	cameraID string
	schedule schedule.Schedule
	location *schedule.Location
	frames   FrameStore
	client   archive.Client
	limits   Limits
	now      func() time.Time
	log      logger.Logger
	stats    *metrics.Collector
}

// New creates a walker for one camera
func New(cameraID string, sched schedule.Schedule, loc *schedule.Location, frames FrameStore, client archive.Client, limits Limits) *Walker {
	return &Walker{
		cameraID: cameraID,
		schedule: sched,
		location: loc,
		frames:   frames,
		client:   client,
		limits:   limits.withDefaults(),
		now:      time.Now,
		log: logger.Default().WithComponent(logger.ComponentBackfill).
			WithFields(map[string]interface{}{"camera_id": cameraID}),
		stats: metrics.Default(),
	}
}

// SetNow overrides the clock (for testing)
func (w *Walker) SetNow(now func() time.Time) {
	w.now = now
}

// Run walks from today backward until a limit or stop condition is hit.
// A fatal archive failure aborts the remaining walk and is returned as
// an error; work already completed stays valid.
func (w *Walker) Run(ctx context.Context) (Result, error) {
	now := w.now()
	state := &walkState{}
	covered := make(map[string]struct{})
	res := Result{}

	w.log.Info("Backfill starting",
		"max_days", w.limits.MaxDays,
		"hard_ceiling_days", w.limits.HardCeilingDays,
		"stop_after_no_data", w.limits.StopAfterConsecutiveNoData)

	for dayOffset := 0; ; dayOffset++ {
		if w.limits.MaxDays > 0 && dayOffset >= w.limits.MaxDays {
			res.StopReason = StopMaxDays
			break
		}
		if dayOffset >= w.limits.HardCeilingDays {
			res.StopReason = StopHardCeiling
			break
		}

		day := now.AddDate(0, 0, -dayOffset)
		slots, err := schedule.GenerateDailySlots(day, w.schedule, w.location)
		if err != nil {
			// Configuration errors fail fast, before any network activity
			return w.finish(res, covered), err
		}

		dayHadData := false
		for _, slot := range slots {
			if slot.After(now) {
				// Today's remaining slots are still in the future
				continue
			}

			date, timeOfDay := store.SlotKey(slot)
			if w.frames.Exists(date, timeOfDay) {
				res.Skipped++
				w.stats.RecordFrameSkipped()
				dayHadData = true
				covered[timeOfDay] = struct{}{}
				continue
			}

			data, err := w.client.ExportFrame(ctx, w.cameraID, slot)
			if err != nil {
				class := archive.ClassOf(err)
				res.Failed++
				w.stats.RecordFrameFailed(class)

				if class == archive.ClassFatal {
					res.StopReason = StopFatal
					res.DaysScanned = dayOffset + 1
					w.log.Error("Backfill aborted", "error", err)
					return w.finish(res, covered), fmt.Errorf("backfill aborted for camera %s: %w", w.cameraID, err)
				}

				state.failure(class)
				w.log.Debug("Export failed",
					"date", date, "time_of_day", timeOfDay,
					"class", string(class), "error", err)
				continue
			}

			if err := w.frames.Write(date, timeOfDay, data); err != nil {
				res.Failed++
				w.stats.RecordFrameFailed(archive.ClassUnclassified)
				state.failure(archive.ClassUnclassified)
				w.log.Warn("Frame write failed", "date", date, "time_of_day", timeOfDay, "error", err)
				continue
			}

			res.Captured++
			w.stats.RecordFrameCaptured()
			state.success()
			dayHadData = true
			covered[timeOfDay] = struct{}{}
		}

		res.DaysScanned = dayOffset + 1

		if !dayHadData {
			if stop := w.stopReason(state); stop != "" {
				res.StopReason = stop
				break
			}
		}
	}

	w.log.Info("Backfill finished",
		"captured", res.Captured,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"days_scanned", res.DaysScanned,
		"stop_reason", res.StopReason)

	return w.finish(res, covered), nil
}

// stopReason evaluates the stop conditions after a day with zero
// successful-or-present frames
func (w *Walker) stopReason(state *walkState) string {
	if state.consecutiveNotFound >= maxConsecutiveNotFound {
		return StopNotFoundRun
	}
	if state.consecutiveNoData >= w.limits.StopAfterConsecutiveNoData {
		return StopNoDataRun
	}
	if state.consecutiveFailures >= maxConsecutiveOtherFailures {
		return StopFailureRun
	}
	return ""
}

func (w *Walker) finish(res Result, covered map[string]struct{}) Result {
	res.CoveredTimeSlots = make([]string, 0, len(covered))
	for tod := range covered {
		res.CoveredTimeSlots = append(res.CoveredTimeSlots, tod)
	}
	sort.Strings(res.CoveredTimeSlots)
	return res
}
