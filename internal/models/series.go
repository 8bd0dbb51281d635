package models

import (
	"errors"
	"fmt"
	"time"
)

// RepeatUnit is the calendar unit a series steps by.
type RepeatUnit string

const (
	RepeatNone   RepeatUnit = "none"
	RepeatDays   RepeatUnit = "days"
	RepeatWeeks  RepeatUnit = "weeks"
	RepeatMonths RepeatUnit = "months"
	RepeatYears  RepeatUnit = "years"
)

// Valid reports whether u is one of the known units.
func (u RepeatUnit) Valid() bool {
	switch u {
	case RepeatNone, RepeatDays, RepeatWeeks, RepeatMonths, RepeatYears:
		return true
	}
	return false
}

// Series is a recurring schedule definition. The recurrence fields keep
// the storage semantics: RepeatInterval < 0 means the series does not
// repeat, 0 means every unit, and N >= 1 means a gap of N units between
// occurrences (every N+1 units). RepeatLimit <= 0 means unlimited.
type Series struct {
	SeriesID int   `json:"series_id"`
	UserID   int64 `json:"user_id"`

	Name    string `json:"name"`
	Message string `json:"message"`

	StartTime time.Time  `json:"start_time"`
	Ended     bool       `json:"ended"`
	EndedAt   *time.Time `json:"ended_at"`

	RepeatUnit     RepeatUnit `json:"repeat_unit"`
	RepeatInterval int        `json:"repeat_interval"`
	RepeatLimit    int        `json:"repeat_limit"`

	// CurrentTime is the cursor: the next occurrence not yet resolved
	// by the reminder sweep.
	CurrentTime    time.Time `json:"current_time"`
	CompletedCount int       `json:"completed_count"`

	AdvanceOffsets AdvanceOffsets `json:"advance_offsets"`
	AdvanceFired   AdvanceFired   `json:"advance_fired"`

	CreatedAt time.Time `json:"created_at"`

	// Populated by SeriesRepository.ListLive (users join), never written back.
	OwnerName  string `json:"-"`
	OwnerEmail string `json:"-"`
}

// Repeats reports whether the series has occurrences beyond the first.
func (s *Series) Repeats() bool {
	return s.RepeatInterval >= 0
}

// End marks the series ended (or reopens it) as an explicit user action.
func (s *Series) End(ended bool, now time.Time) {
	s.Ended = ended
	if ended {
		s.EndedAt = &now
	} else {
		s.EndedAt = nil
	}
}

// Validate rejects malformed recurrence settings before a series is
// persisted. Invalid series never reach the sweeps.
func (s *Series) Validate() error {
	if s.Name == "" {
		return errors.New("series name is required")
	}
	if s.StartTime.IsZero() {
		return errors.New("series start time is required")
	}
	if !s.RepeatUnit.Valid() {
		return fmt.Errorf("unknown repeat unit %q", s.RepeatUnit)
	}
	if s.RepeatInterval >= 0 && s.RepeatUnit == RepeatNone {
		return fmt.Errorf("repeat interval %d requires a repeat unit", s.RepeatInterval)
	}
	for _, day := range s.AdvanceOffsets {
		if day < 0 {
			return fmt.Errorf("advance offset %d is negative", day)
		}
	}
	return nil
}
