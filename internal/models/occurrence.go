package models

import "time"

// Occurrence is one concrete, individually completable instance of a
// series, produced in bulk by the materializer.
type Occurrence struct {
	OccurrenceID int   `json:"occurrence_id"`
	SeriesID     int   `json:"series_id"`
	UserID       int64 `json:"user_id"`

	OccurrenceTime time.Time `json:"occurrence_time"`
	// OccurrenceIndex is the completed-count value this instance
	// corresponds to (1-based).
	OccurrenceIndex int `json:"occurrence_index"`
	// RemainingRepeats copies the series repeat limit as it stood at
	// materialization time; <= 0 means unlimited.
	RemainingRepeats int `json:"remaining_repeats"`

	Done   bool       `json:"done"`
	DoneAt *time.Time `json:"done_at"`
	Remark string     `json:"remark"`

	CreatedAt time.Time `json:"created_at"`
}

// SetDone flips the completion flag; clearing it also clears DoneAt.
func (o *Occurrence) SetDone(done bool, now time.Time) {
	o.Done = done
	if done {
		o.DoneAt = &now
	} else {
		o.DoneAt = nil
	}
}
