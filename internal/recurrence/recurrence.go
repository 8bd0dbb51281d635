// Package recurrence computes occurrence times for a repeating series.
// All functions are pure; the cursor and counters live on the series
// record and are only moved by the reminder sweep.
package recurrence

import (
	"fmt"
	"time"

	"mailminder/internal/models"
)

// Next returns the occurrence that follows dt, or nil for a
// non-repeating series. The step is RepeatInterval+1 units: an interval
// of 0 means every unit, an interval of N means a gap of N units.
func Next(s *models.Series, dt time.Time) *time.Time {
	if s.RepeatInterval < 0 {
		return nil
	}
	return step(s, dt, s.RepeatInterval+1)
}

// Previous returns the occurrence that precedes dt. It is bounded by
// the series start: once the stepped-back value falls at or before
// start−step there is nothing earlier to reconstruct and nil is
// returned.
func Previous(s *models.Series, dt time.Time) *time.Time {
	if s.RepeatInterval < 0 {
		return nil
	}
	prev := step(s, dt, -(s.RepeatInterval + 1))
	if prev == nil {
		return nil
	}
	threshold := step(s, s.StartTime, -(s.RepeatInterval + 1))
	if !prev.After(*threshold) {
		return nil
	}
	return prev
}

// step advances dt by n units of the series' repeat unit. Month and
// year steps clamp the day-of-month at the end of the target month
// (Jan 31 + 1 month is Feb 28/29), matching how the series cursor has
// always moved; time.AddDate would normalize into March instead.
func step(s *models.Series, dt time.Time, n int) *time.Time {
	var next time.Time
	switch s.RepeatUnit {
	case models.RepeatDays:
		next = dt.AddDate(0, 0, n)
	case models.RepeatWeeks:
		next = dt.AddDate(0, 0, 7*n)
	case models.RepeatMonths:
		next = addMonths(dt, n)
	case models.RepeatYears:
		next = addMonths(dt, 12*n)
	default:
		return nil
	}
	return &next
}

// addMonths shifts dt by n calendar months, clamping the day-of-month
// to the length of the target month and keeping the time of day.
func addMonths(dt time.Time, n int) time.Time {
	y := dt.Year()
	m := int(dt.Month()) - 1 + n
	y += m / 12
	m = m % 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	day := dt.Day()
	if last := daysIn(y, month); day > last {
		day = last
	}
	return time.Date(y, month, day, dt.Hour(), dt.Minute(), dt.Second(), dt.Nanosecond(), dt.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsAlive reports whether the series still has unresolved occurrences:
// not ended, not past its repeat limit, and for a non-repeating series
// not already past its only occurrence.
func IsAlive(s *models.Series, now time.Time) bool {
	if s.Ended {
		return false
	}
	if s.RepeatLimit > 0 && s.CompletedCount >= s.RepeatLimit {
		return false
	}
	if s.RepeatInterval < 0 && now.After(s.CurrentTime) {
		return false
	}
	return true
}

// HasNext reports whether an occurrence exists after the cursor.
func HasNext(s *models.Series, now time.Time) bool {
	return IsAlive(s, now) && s.RepeatInterval >= 0
}

// NextAfter resolves the first occurrence strictly after the probe time
// t, walking from the live cursor in whichever direction t lies. The
// backward walk reconstructs occurrences between the series start and
// the cursor; the forward walk counts trial completions so a capped
// series yields nil instead of occurrences past its limit.
func NextAfter(s *models.Series, t time.Time) *time.Time {
	if t.Before(s.StartTime) {
		first := s.StartTime
		return &first
	}
	if s.RepeatInterval < 0 {
		return nil
	}

	cur := s.CurrentTime
	if t.Before(cur) {
		for {
			prev := Previous(s, cur)
			if prev == nil {
				return nil
			}
			if !prev.After(t) {
				after := cur
				return &after
			}
			cur = *prev
		}
	}

	trial := s.CompletedCount
	for {
		next := Next(s, cur)
		if next == nil {
			return nil
		}
		trial++
		if s.RepeatLimit > 0 && trial >= s.RepeatLimit {
			return nil
		}
		if next.After(t) {
			return next
		}
		cur = *next
	}
}

// Describe renders the recurrence in human-readable form for outbound
// notifications.
func Describe(s *models.Series) string {
	if s.RepeatInterval < 0 {
		return "one-time"
	}
	var unit string
	switch s.RepeatUnit {
	case models.RepeatDays:
		unit = "day"
	case models.RepeatWeeks:
		unit = "week"
	case models.RepeatMonths:
		unit = "month"
	case models.RepeatYears:
		unit = "year"
	default:
		return "one-time"
	}
	if s.RepeatInterval == 0 {
		return "every " + unit
	}
	return fmt.Sprintf("every %d %ss", s.RepeatInterval+1, unit)
}
