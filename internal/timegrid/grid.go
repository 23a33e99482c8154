// Package timegrid maps wall-clock times onto the discretized weekly
// grid used for conflict windows and on-screen placement.
package timegrid

import (
	"fmt"
	"strings"
	"time"
)

// Days is the fixed ordering of schedulable weekdays. There is no Sunday
// column anywhere in the application.
var Days = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// DayIndex returns the column index of a day, case-insensitive.
func DayIndex(day string) (int, bool) {
	needle := strings.ToUpper(strings.TrimSpace(day))
	for i, d := range Days {
		if d == needle {
			return i, true
		}
	}
	return 0, false
}

// IsValidDay reports whether the day belongs to the schedulable set.
func IsValidDay(day string) bool {
	_, ok := DayIndex(day)
	return ok
}

// Grid describes one discretization of the scheduling day. Different
// views use different slot sizes over the same week.
type Grid struct {
	StartHour   int
	EndHour     int
	SlotMinutes int
}

// Default is the fine-grained editing grid: 07:00-23:00 in half hours.
func Default() Grid {
	return Grid{StartHour: 7, EndHour: 23, SlotMinutes: 30}
}

// Hourly is the coarse display grid: 07:00-22:00 in whole hours.
func Hourly() Grid {
	return Grid{StartHour: 7, EndHour: 22, SlotMinutes: 60}
}

// TotalSlots returns the number of slots between StartHour and EndHour.
func (g Grid) TotalSlots() int {
	if g.SlotMinutes <= 0 || g.EndHour <= g.StartHour {
		return 0
	}
	return (g.EndHour - g.StartHour) * 60 / g.SlotMinutes
}

// ParseClock parses a strict zero-padded 24-hour "HH:MM" string into
// minutes from midnight. Unpadded fields and trailing characters are
// rejected.
func ParseClock(s string) (int, error) {
	if len(s) != 5 {
		return 0, fmt.Errorf("clock %q is not HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesToSlot converts minutes from midnight into a slot index, clamped
// to [0, TotalSlots]. Times before the grid start land on 0, times at or
// after the grid end land on the bottom edge.
func (g Grid) MinutesToSlot(minutes int) int {
	total := g.TotalSlots()
	if total == 0 {
		return 0
	}
	offset := minutes - g.StartHour*60
	if offset < 0 {
		return 0
	}
	slot := offset / g.SlotMinutes
	if slot > total {
		return total
	}
	return slot
}

// TimeToSlot converts a wall-clock string into a clamped slot index.
// Malformed input clamps to 0; validation happens upstream, this is
// deliberately total for rendering.
func (g Grid) TimeToSlot(clock string) int {
	minutes, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return g.MinutesToSlot(minutes)
}

// SlotLabel returns the "HH:MM" label of a slot boundary. Index
// TotalSlots labels the bottom edge of the grid.
func (g Grid) SlotLabel(slot int) string {
	if slot < 0 {
		slot = 0
	}
	if total := g.TotalSlots(); slot > total {
		slot = total
	}
	minutes := g.StartHour*60 + slot*g.SlotMinutes
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotLabels returns the axis labels for every slot boundary, top to
// bottom edge inclusive.
func (g Grid) SlotLabels() []string {
	total := g.TotalSlots()
	labels := make([]string, 0, total+1)
	for i := 0; i <= total; i++ {
		labels = append(labels, g.SlotLabel(i))
	}
	return labels
}

// DurationHours returns the fractional hour span between two clock
// strings. A non-positive or unparseable span yields 0.
func DurationHours(start, end string) float64 {
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	if e <= s {
		return 0
	}
	return float64(e-s) / 60.0
}
