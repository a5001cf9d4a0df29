package flow

import (
	"strings"
	"time"

	"github.com/atendify/flowengine/internal/models"
)

// WithinBusinessHours reports whether now falls inside the configured service
// window. The day must be marked open in the weekday map and the time of day
// must fall inside at least one configured range; range bounds are inclusive
// on both ends, so an 08:00-18:00 window admits exactly 08:00 and 18:00.
//
// A node configured with weekdays but no time ranges gates on the day alone.
func WithinBusinessHours(now time.Time, cfg models.BusinessHoursConfig) bool {
	day := strings.ToLower(now.Weekday().String())
	if !cfg.Weekdays[day] {
		return false
	}
	if len(cfg.TimeRanges) == 0 {
		return true
	}
	minutes := now.Hour()*60 + now.Minute()
	for _, r := range cfg.TimeRanges {
		if minutes >= r.StartMinutes && minutes <= r.EndMinutes {
			return true
		}
	}
	return false
}
