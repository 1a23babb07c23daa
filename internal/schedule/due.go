package schedule

import (
	"time"
)

// DueTolerance is how far a slot may be from "now", on either side, and
// still count as due. The capture daemon polls on a coarse cadence
// (default every 15 minutes), so a slot that fell just between polls must
// not be missed, and a slot already captured must not refire.
const DueTolerance = 5 * time.Minute

// IsCaptureDue reports whether a capture slot is due at now. Slots not
// after last (the previous capture instant, when known) never refire;
// slots more than the tolerance in the past are treated as missed and
// left to backfill.
func IsCaptureDue(s Schedule, last *time.Time, loc *Location, now time.Time) (bool, error) {
	_, due, err := DueSlot(s, last, loc, now)
	return due, err
}

// DueSlot returns the slot that is due at now, when one is. The slot's
// instant, not now, is what the capture is recorded against.
func DueSlot(s Schedule, last *time.Time, loc *Location, now time.Time) (time.Time, bool, error) {
	slots, err := GenerateDailySlots(now, s, loc)
	if err != nil {
		return time.Time{}, false, err
	}

	for _, slot := range slots {
		if last != nil && !slot.After(*last) {
			continue
		}
		if slot.Before(now.Add(-DueTolerance)) {
			continue
		}
		// First candidate slot decides: due only when inside the window
		if !slot.After(now.Add(DueTolerance)) {
			return slot, true, nil
		}
		return time.Time{}, false, nil
	}

	return time.Time{}, false, nil
}

// NextCaptureTime returns the first slot strictly after now, falling
// through to tomorrow's first slot when today is exhausted. The zero time
// is returned when neither day yields a slot, which the generator's
// noon fallback makes unreachable for a valid schedule.
func NextCaptureTime(s Schedule, loc *Location, now time.Time) (time.Time, error) {
	for dayOffset := 0; dayOffset <= 1; dayOffset++ {
		day := now.AddDate(0, 0, dayOffset)
		slots, err := GenerateDailySlots(day, s, loc)
		if err != nil {
			return time.Time{}, err
		}
		for _, slot := range slots {
			if slot.After(now) {
				return slot, nil
			}
		}
	}
	return time.Time{}, nil
}
