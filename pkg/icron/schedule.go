package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard five fields plus descriptors such as @every 1m.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Expression    string
	Next          time.Time
	TimeUntilNext time.Duration
}

// Parse validates expr and returns its schedule.
func Parse(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// GetTriggerInfo reports when expr fires next after refTime.
func GetTriggerInfo(expr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	next := schedule.Next(refTime)
	return &TriggerInfo{
		Expression:    expr,
		Next:          next,
		TimeUntilNext: next.Sub(refTime),
	}, nil
}
