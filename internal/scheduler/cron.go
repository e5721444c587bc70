// Package scheduler runs periodic jobs: the watched-folder sweep and the
// run ledger cleanup. Schedules use the standard five-field cron format.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newCron() *cron.Cron {
	return cron.New(cron.WithParser(parser))
}

// ValidateSchedule checks that schedule is a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the next activation of schedule after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
