package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mailminder/internal/database"
	"mailminder/internal/models"
)

type OccurrenceRepository struct {
	db *database.DB
}

func NewOccurrenceRepository(db *database.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// LatestForSeries returns the newest materialized occurrence for the
// series, or nil when none exist.
func (r *OccurrenceRepository) LatestForSeries(ctx context.Context, seriesID int) (*models.Occurrence, error) {
	o := &models.Occurrence{}
	var remark *string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT occurrence_id, series_id, user_id, occurrence_time, occurrence_index,
		        remaining_repeats, done, done_at, remark, created_at
		 FROM occurrences WHERE series_id = $1
		 ORDER BY occurrence_time DESC LIMIT 1`,
		seriesID,
	).Scan(&o.OccurrenceID, &o.SeriesID, &o.UserID, &o.OccurrenceTime, &o.OccurrenceIndex,
		&o.RemainingRepeats, &o.Done, &o.DoneAt, &remark, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if remark != nil {
		o.Remark = *remark
	}
	return o, nil
}

// BulkInsert writes the batch in one transaction so a crash can never
// leave a partially materialized window behind.
func (r *OccurrenceRepository) BulkInsert(ctx context.Context, occs []*models.Occurrence) error {
	if len(occs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"occurrences"},
		[]string{"series_id", "user_id", "occurrence_time", "occurrence_index", "remaining_repeats", "done"},
		pgx.CopyFromSlice(len(occs), func(i int) ([]any, error) {
			o := occs[i]
			return []any{o.SeriesID, o.UserID, o.OccurrenceTime, o.OccurrenceIndex, o.RemainingRepeats, o.Done}, nil
		}),
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OccurrenceRepository) ListForSeries(ctx context.Context, seriesID int, userID int64) ([]*models.Occurrence, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT occurrence_id, series_id, user_id, occurrence_time, occurrence_index,
		        remaining_repeats, done, done_at, remark, created_at
		 FROM occurrences WHERE series_id = $1 AND user_id = $2
		 ORDER BY occurrence_time ASC`,
		seriesID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Occurrence
	for rows.Next() {
		o := &models.Occurrence{}
		var remark *string
		if err := rows.Scan(&o.OccurrenceID, &o.SeriesID, &o.UserID, &o.OccurrenceTime, &o.OccurrenceIndex,
			&o.RemainingRepeats, &o.Done, &o.DoneAt, &remark, &o.CreatedAt); err != nil {
			return nil, err
		}
		if remark != nil {
			o.Remark = *remark
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// SetDone flips an occurrence's completion flag as a user action.
// Clearing the flag also clears done_at.
func (r *OccurrenceRepository) SetDone(ctx context.Context, occurrenceID int, userID int64, done bool, now time.Time) error {
	var doneAt *time.Time
	if done {
		doneAt = &now
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE occurrences SET done = $1, done_at = $2 WHERE occurrence_id = $3 AND user_id = $4`,
		done, doneAt, occurrenceID, userID,
	)
	return err
}

func (r *OccurrenceRepository) SetRemark(ctx context.Context, occurrenceID int, userID int64, remark string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE occurrences SET remark = $1 WHERE occurrence_id = $2 AND user_id = $3`,
		remark, occurrenceID, userID,
	)
	return err
}
