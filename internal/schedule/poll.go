package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// PollPlan computes when the capture daemon should next wake up, from a
// standard 5-field cron expression evaluated in a given timezone.
type PollPlan struct {
	spec  string
	tz    *time.Location
	sched cron.Schedule
}

// NewPollPlan parses a cron expression (minute hour day month weekday)
// and an IANA timezone. An empty timezone means UTC.
func NewPollPlan(spec, timezone string) (*PollPlan, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll cron expression %q: %w", spec, err)
	}

	tz := time.UTC
	if timezone != "" && timezone != "UTC" {
		tz, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid poll timezone %q: %w", timezone, err)
		}
	}

	return &PollPlan{spec: spec, tz: tz, sched: sched}, nil
}

// Next returns the first poll tick strictly after the given instant
func (p *PollPlan) Next(after time.Time) time.Time {
	return p.sched.Next(after.In(p.tz))
}

// Spec returns the cron expression this plan was built from
func (p *PollPlan) Spec() string {
	return p.spec
}
