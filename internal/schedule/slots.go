package schedule

import (
	"sort"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// GenerateDailySlots computes the ordered capture instants for one
// calendar day under the schedule's policy. It is pure: the only time
// input is the caller-supplied day. The result is ascending and
// deduplicated. A sunrise/sunset schedule without a location is a
// ConfigError.
func GenerateDailySlots(day time.Time, s Schedule, loc *Location) ([]time.Time, error) {
	tz, err := s.TimeLocation()
	if err != nil {
		return nil, err
	}

	// Midnight of the target day in the schedule's timezone
	y, m, d := day.In(tz).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, tz)

	var slots []time.Time
	switch s.Mode {
	case ModeFixedTime:
		slots, err = fixedTimeSlots(midnight, s)
	case ModeInterval:
		slots, err = intervalSlots(midnight, s)
	case ModeSunriseSunset:
		slots, err = sunriseSunsetSlots(midnight, s, loc, tz)
	default:
		// Defensive default: a single slot at local noon, never an
		// empty day for an unset policy
		slots = []time.Time{midnight.Add(12 * time.Hour)}
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return dedupeSlots(slots), nil
}

// fixedTimeSlots builds one slot per configured wall-clock time
func fixedTimeSlots(midnight time.Time, s Schedule) ([]time.Time, error) {
	if len(s.Times) == 0 {
		return nil, &ConfigError{Reason: "fixed mode requires at least one time"}
	}
	slots := make([]time.Time, 0, len(s.Times))
	for _, t := range s.Times {
		h, m, err := parseClock(t)
		if err != nil {
			return nil, err
		}
		slots = append(slots, midnight.Add(time.Duration(h)*time.Hour+time.Duration(m)*time.Minute))
	}
	return slots, nil
}

// intervalSlots emits a slot every 60/shotsPerHour minutes, inclusive of
// both window boundaries. Each slot offset is computed by a single
// multiplication so fractional intervals cannot accumulate drift.
func intervalSlots(midnight time.Time, s Schedule) ([]time.Time, error) {
	if s.ShotsPerHour < 1 || s.ShotsPerHour > 60 {
		return nil, &ConfigError{Reason: "shots_per_hour must be in [1,60]"}
	}
	startMin, endMin, err := s.window()
	if err != nil {
		return nil, err
	}

	start := midnight.Add(time.Duration(startMin) * time.Minute)
	end := midnight.Add(time.Duration(endMin) * time.Minute)

	var slots []time.Time
	for i := 0; ; i++ {
		slot := start.Add(slotOffset(i, s.ShotsPerHour))
		if slot.After(end) {
			break
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// sunriseSunsetSlots emits the offset sunrise and/or sunset instants and,
// when an interior interval is configured, intermediate slots between them
func sunriseSunsetSlots(midnight time.Time, s Schedule, loc *Location, tz *time.Location) ([]time.Time, error) {
	if loc == nil {
		return nil, &ConfigError{Reason: "sunrise_sunset mode requires a location"}
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	rise, set := sunrise.SunriseSunset(loc.Lat, loc.Lon, midnight.Year(), midnight.Month(), midnight.Day())
	if rise.IsZero() || set.IsZero() {
		return nil, &ConfigError{Reason: "sun does not rise or set at this location on this day"}
	}

	riseAt := rise.In(tz).Add(time.Duration(s.SunriseOffsetMinutes) * time.Minute).Truncate(time.Minute)
	setAt := set.In(tz).Add(time.Duration(s.SunsetOffsetMinutes) * time.Minute).Truncate(time.Minute)

	var slots []time.Time
	if s.CaptureSunrise {
		slots = append(slots, riseAt)
	}
	if s.CaptureSunset {
		slots = append(slots, setAt)
	}

	// Interior interval: starts one interval after the offset sunrise,
	// never past the offset sunset
	if s.ShotsPerHour > 0 {
		for i := 1; ; i++ {
			slot := riseAt.Add(slotOffset(i, s.ShotsPerHour))
			if slot.After(setAt) {
				break
			}
			slots = append(slots, slot)
		}
	}

	return slots, nil
}

// slotOffset is the offset of the i-th interval slot from the window
// start. Multiplying before dividing keeps fractional-minute intervals
// exact per slot instead of summing a rounded step.
func slotOffset(i, shotsPerHour int) time.Duration {
	return time.Duration(i) * time.Hour / time.Duration(shotsPerHour)
}

// dedupeSlots removes exact duplicates from a sorted slot list
func dedupeSlots(slots []time.Time) []time.Time {
	if len(slots) < 2 {
		return slots
	}
	out := slots[:1]
	for _, s := range slots[1:] {
		if !s.Equal(out[len(out)-1]) {
			out = append(out, s)
		}
	}
	return out
}
