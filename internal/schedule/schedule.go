// Package schedule computes capture instants for the three scheduling
// policies and decides when the polling daemon should fire.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode selects the active scheduling policy. Exactly one policy is
// active per schedule.
type Mode string

const (
	// ModeFixedTime captures at a fixed set of wall-clock times each day
	ModeFixedTime Mode = "fixed"
	// ModeInterval captures every 60/shots_per_hour minutes inside a window
	ModeInterval Mode = "interval"
	// ModeSunriseSunset captures relative to astronomical sunrise/sunset
	ModeSunriseSunset Mode = "sunrise_sunset"
)

// Schedule is the immutable capture schedule configuration for one camera
type Schedule struct {
	Mode Mode `yaml:"mode" json:"mode"`

	// FixedTime: wall-clock times as "HH:MM", order not significant
	Times []string `yaml:"times,omitempty" json:"times,omitempty"`

	// Interval: shots per hour in [1,60]; also enables the interior
	// interval in sunrise/sunset mode when > 0
	ShotsPerHour int `yaml:"shots_per_hour,omitempty" json:"shots_per_hour,omitempty"`

	// Interval window as "HH:MM"; defaults to 00:00-23:59 when unset
	WindowStart string `yaml:"window_start,omitempty" json:"window_start,omitempty"`
	WindowEnd   string `yaml:"window_end,omitempty" json:"window_end,omitempty"`

	// SunriseSunset
	CaptureSunrise       bool `yaml:"capture_sunrise,omitempty" json:"capture_sunrise,omitempty"`
	CaptureSunset        bool `yaml:"capture_sunset,omitempty" json:"capture_sunset,omitempty"`
	SunriseOffsetMinutes int  `yaml:"sunrise_offset_minutes,omitempty" json:"sunrise_offset_minutes,omitempty"`
	SunsetOffsetMinutes  int  `yaml:"sunset_offset_minutes,omitempty" json:"sunset_offset_minutes,omitempty"`

	// Timezone is an IANA timezone name; defaults to UTC
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// Location is a geographic position, required by the sunrise/sunset policy
type Location struct {
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
	Name string  `yaml:"name,omitempty" json:"name,omitempty"`
}

// Validate checks the location coordinate ranges
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return &ConfigError{Reason: fmt.Sprintf("latitude %v out of range [-90,90]", l.Lat)}
	}
	if l.Lon < -180 || l.Lon > 180 {
		return &ConfigError{Reason: fmt.Sprintf("longitude %v out of range [-180,180]", l.Lon)}
	}
	return nil
}

// ConfigError indicates an invalid or incomplete schedule configuration.
// It fails fast, before any network activity, and is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "schedule configuration error: " + e.Reason
}

// Validate checks that the schedule describes exactly one usable policy
func (s Schedule) Validate() error {
	if _, err := s.TimeLocation(); err != nil {
		return err
	}

	switch s.Mode {
	case ModeFixedTime:
		if len(s.Times) == 0 {
			return &ConfigError{Reason: "fixed mode requires at least one time"}
		}
		for _, t := range s.Times {
			if _, _, err := parseClock(t); err != nil {
				return err
			}
		}
	case ModeInterval:
		if s.ShotsPerHour < 1 || s.ShotsPerHour > 60 {
			return &ConfigError{Reason: fmt.Sprintf("shots_per_hour %d out of range [1,60]", s.ShotsPerHour)}
		}
		if _, _, err := s.window(); err != nil {
			return err
		}
	case ModeSunriseSunset:
		if !s.CaptureSunrise && !s.CaptureSunset && s.ShotsPerHour == 0 {
			return &ConfigError{Reason: "sunrise_sunset mode captures nothing: enable a flag or shots_per_hour"}
		}
		if s.ShotsPerHour < 0 || s.ShotsPerHour > 60 {
			return &ConfigError{Reason: fmt.Sprintf("shots_per_hour %d out of range [0,60]", s.ShotsPerHour)}
		}
	case "":
		// Unset policy is tolerated; slot generation falls back to noon
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown schedule mode %q", s.Mode)}
	}

	return nil
}

// TimeLocation resolves the schedule timezone, defaulting to UTC
func (s Schedule) TimeLocation() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid timezone %q: %v", s.Timezone, err)}
	}
	return loc, nil
}

// window resolves the interval window clock bounds, defaulted to the full day
func (s Schedule) window() (startMin, endMin int, err error) {
	startMin, endMin = 0, 23*60+59
	if s.WindowStart != "" {
		h, m, err := parseClock(s.WindowStart)
		if err != nil {
			return 0, 0, err
		}
		startMin = h*60 + m
	}
	if s.WindowEnd != "" {
		h, m, err := parseClock(s.WindowEnd)
		if err != nil {
			return 0, 0, err
		}
		endMin = h*60 + m
	}
	if endMin < startMin {
		return 0, 0, &ConfigError{Reason: fmt.Sprintf("window end %q before start %q", s.WindowEnd, s.WindowStart)}
	}
	return startMin, endMin, nil
}

// parseClock parses a wall-clock "HH:MM" string
func parseClock(v string) (hour, min int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, &ConfigError{Reason: fmt.Sprintf("invalid time %q: want HH:MM", v)}
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &ConfigError{Reason: fmt.Sprintf("invalid hour in %q", v)}
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, &ConfigError{Reason: fmt.Sprintf("invalid minute in %q", v)}
	}
	return hour, min, nil
}
