package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mailminder/internal/database"
	"mailminder/internal/models"
)

type SeriesRepository struct {
	db *database.DB
}

func NewSeriesRepository(db *database.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

const seriesColumns = `series_id, user_id, name, message, start_time, ended, ended_at,
	 repeat_unit, repeat_interval, repeat_limit, cursor_time, completed_count,
	 advance_offsets, advance_fired, created_at`

func (r *SeriesRepository) Create(ctx context.Context, s *models.Series) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.AdvanceOffsets = s.AdvanceOffsets.Normalize()
	if s.AdvanceFired == nil {
		s.AdvanceFired = s.AdvanceOffsets.ResetFired()
	}
	if s.CurrentTime.IsZero() {
		s.CurrentTime = s.StartTime
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO series (user_id, name, message, start_time, repeat_unit, repeat_interval,
		                     repeat_limit, cursor_time, completed_count, advance_offsets, advance_fired)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING series_id, created_at`,
		s.UserID, s.Name, s.Message, s.StartTime, string(s.RepeatUnit), s.RepeatInterval,
		s.RepeatLimit, s.CurrentTime, s.CompletedCount, s.AdvanceOffsets.String(), s.AdvanceFired.String(),
	).Scan(&s.SeriesID, &s.CreatedAt)
}

func (r *SeriesRepository) GetByID(ctx context.Context, seriesID int, userID int64) (*models.Series, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE series_id = $1 AND user_id = $2`,
		seriesID, userID,
	)
	return scanSeries(row)
}

func (r *SeriesRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Series, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE user_id = $1 ORDER BY cursor_time ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListLive returns every non-ended series joined with its owner, so the
// sweeps see the notification address without a second query.
func (r *SeriesRepository) ListLive(ctx context.Context) ([]*models.Series, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.series_id, s.user_id, s.name, s.message, s.start_time, s.ended, s.ended_at,
		        s.repeat_unit, s.repeat_interval, s.repeat_limit, s.cursor_time, s.completed_count,
		        s.advance_offsets, s.advance_fired, s.created_at, u.username, u.email
		 FROM series s JOIN users u ON u.user_id = s.user_id
		 WHERE s.ended = FALSE
		 ORDER BY s.series_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Series
	for rows.Next() {
		s := &models.Series{}
		var unit string
		var offsetsRaw, firedRaw string
		var email *string
		if err := rows.Scan(&s.SeriesID, &s.UserID, &s.Name, &s.Message, &s.StartTime, &s.Ended, &s.EndedAt,
			&unit, &s.RepeatInterval, &s.RepeatLimit, &s.CurrentTime, &s.CompletedCount,
			&offsetsRaw, &firedRaw, &s.CreatedAt, &s.OwnerName, &email); err != nil {
			return nil, err
		}
		s.RepeatUnit = models.RepeatUnit(unit)
		decodeAdvance(s, offsetsRaw, firedRaw)
		if email != nil {
			s.OwnerEmail = *email
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Save persists the mutable sweep state: cursor, completion count,
// ended flag and the advance-fired map.
func (r *SeriesRepository) Save(ctx context.Context, s *models.Series) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE series SET cursor_time = $1, completed_count = $2, ended = $3, ended_at = $4, advance_fired = $5
		 WHERE series_id = $6`,
		s.CurrentTime, s.CompletedCount, s.Ended, s.EndedAt, s.AdvanceFired.String(), s.SeriesID,
	)
	return err
}

// End marks a series ended (or reopens it) as an explicit user action.
func (r *SeriesRepository) End(ctx context.Context, seriesID int, userID int64, ended bool, now time.Time) error {
	var endedAt *time.Time
	if ended {
		endedAt = &now
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE series SET ended = $1, ended_at = $2 WHERE series_id = $3 AND user_id = $4`,
		ended, endedAt, seriesID, userID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*models.Series, error) {
	s := &models.Series{}
	var unit string
	var offsetsRaw, firedRaw string
	err := row.Scan(&s.SeriesID, &s.UserID, &s.Name, &s.Message, &s.StartTime, &s.Ended, &s.EndedAt,
		&unit, &s.RepeatInterval, &s.RepeatLimit, &s.CurrentTime, &s.CompletedCount,
		&offsetsRaw, &firedRaw, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.RepeatUnit = models.RepeatUnit(unit)
	decodeAdvance(s, offsetsRaw, firedRaw)
	return s, nil
}

// decodeAdvance turns the stored forms into the typed value objects.
// An unreadable offsets column degrades to no advance reminders, the
// same way the fired map degrades to all-unfired.
func decodeAdvance(s *models.Series, offsetsRaw, firedRaw string) {
	offsets, err := models.ParseAdvanceOffsets(offsetsRaw)
	if err != nil {
		offsets = nil
	}
	s.AdvanceOffsets = offsets
	s.AdvanceFired = models.ParseAdvanceFired(firedRaw)
}
