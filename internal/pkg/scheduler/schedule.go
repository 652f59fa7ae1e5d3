package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule defines when an entry should run.
type Schedule interface {
	// NextRun returns the next run time after the given time.
	NextRun(from time.Time) time.Time
	// String returns a human-readable representation of the schedule.
	String() string
}

// CronSchedule represents a cron-based schedule.
type CronSchedule struct {
	Expression string
	schedule   cron.Schedule
}

// NewCronSchedule creates a new cron schedule from a five-field cron expression.
func NewCronSchedule(expression string) (*CronSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	return &CronSchedule{
		Expression: expression,
		schedule:   schedule,
	}, nil
}

func (c *CronSchedule) NextRun(from time.Time) time.Time {
	return c.schedule.Next(from)
}

func (c *CronSchedule) String() string {
	return fmt.Sprintf("cron(%s)", c.Expression)
}

// IntervalSchedule represents an interval-based schedule.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new interval schedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

func (i *IntervalSchedule) NextRun(from time.Time) time.Time {
	return from.Add(i.Interval)
}

func (i *IntervalSchedule) String() string {
	return fmt.Sprintf("every %s", i.Interval)
}
