// Package materialize expands a series into concrete occurrence rows
// covering a rolling forward window.
package materialize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mailminder/internal/models"
	"mailminder/internal/recurrence"
)

// DefaultHorizonDays is how far ahead occurrences are guaranteed to
// exist when no override is given.
const DefaultHorizonDays = 365

// OccurrenceStore is the slice of persistence the materializer needs.
type OccurrenceStore interface {
	// LatestForSeries returns the newest materialized occurrence for
	// the series, or nil when none exist yet.
	LatestForSeries(ctx context.Context, seriesID int) (*models.Occurrence, error)
	// BulkInsert persists the batch atomically: either every record
	// lands or none do.
	BulkInsert(ctx context.Context, occs []*models.Occurrence) error
}

type Materializer struct {
	occs OccurrenceStore
	log  zerolog.Logger
}

func New(occs OccurrenceStore, log zerolog.Logger) *Materializer {
	return &Materializer{occs: occs, log: log}
}

// Materialize ensures occurrence rows exist for s out to now+daysAhead.
// It continues from the newest already-materialized occurrence when one
// exists, so re-running with an overlapping horizon never duplicates a
// (series, time) pair. The emitted batch is written in one atomic
// insert; a failed batch is simply retried by the next daily pass.
func (m *Materializer) Materialize(ctx context.Context, s *models.Series, now time.Time, daysAhead int) (int, error) {
	if daysAhead <= 0 {
		daysAhead = DefaultHorizonDays
	}
	if s.CurrentTime.IsZero() {
		return 0, nil
	}
	horizon := now.AddDate(0, 0, daysAhead)

	latest, err := m.occs.LatestForSeries(ctx, s.SeriesID)
	if err != nil {
		return 0, fmt.Errorf("latest occurrence: %w", err)
	}

	var walk time.Time
	var index, remaining int
	if latest != nil {
		next := recurrence.NextAfter(s, latest.OccurrenceTime)
		if next == nil {
			return 0, nil // series exhausted beyond what is already on disk
		}
		walk = *next
		index = latest.OccurrenceIndex + 1
		remaining = latest.RemainingRepeats
	} else {
		walk = s.CurrentTime
		index = s.CompletedCount + 1
		remaining = s.RepeatLimit
	}

	var batch []*models.Occurrence
	for !walk.After(horizon) {
		batch = append(batch, &models.Occurrence{
			SeriesID:         s.SeriesID,
			UserID:           s.UserID,
			OccurrenceTime:   walk,
			OccurrenceIndex:  index,
			RemainingRepeats: remaining,
		})
		next := recurrence.NextAfter(s, walk)
		if next == nil {
			break
		}
		walk = *next
		index++
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := m.occs.BulkInsert(ctx, batch); err != nil {
		return 0, fmt.Errorf("bulk insert %d occurrences: %w", len(batch), err)
	}
	m.log.Debug().Int("series_id", s.SeriesID).Int("count", len(batch)).Time("horizon", horizon).Msg("materialized occurrences")
	return len(batch), nil
}
