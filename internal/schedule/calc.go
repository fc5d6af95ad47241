// Package schedule computes recurring trigger instants and fires them.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rewindhq/rewind/internal/models"
)

// RepeatInterval is the fixed cadence baseline between firings. Day-of-week
// filtering is applied at fire-time, not here.
const RepeatInterval = 24 * time.Hour

// ErrDisabled is returned when the schedule is switched off; the caller must
// cancel any pending trigger.
var ErrDisabled = errors.New("schedule disabled")

// Next is the computed trigger: an absolute instant plus the repeat interval.
type Next struct {
	At       time.Time
	Interval time.Duration
}

// NextTrigger computes when the schedule fires next relative to now. The
// candidate is today at the configured time-of-day; a candidate not strictly
// after now moves to the same time tomorrow.
func NextTrigger(s models.Schedule, now time.Time) (Next, error) {
	if !s.Enabled {
		return Next{}, ErrDisabled
	}
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return Next{}, err
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return Next{At: at, Interval: RepeatInterval}, nil
}

// parseTimeOfDay parses "HH:MM" (24-hour clock).
func parseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
