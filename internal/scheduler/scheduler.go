// Package scheduler runs the two periodic passes over live series: the
// per-minute reminder sweep and the daily occurrence materialization.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mailminder/internal/models"
	"mailminder/internal/recurrence"
)

// SeriesStore is the slice of persistence the sweeps need.
type SeriesStore interface {
	// ListLive returns every non-ended series with its owner's name
	// and notification address populated.
	ListLive(ctx context.Context) ([]*models.Series, error)
	// Save persists the cursor, completion count, ended flag and
	// advance-fired state of one series.
	Save(ctx context.Context, s *models.Series) error
}

// Enqueuer hands payloads to the notification dispatch queue. Enqueue
// blocks while the queue is full.
type Enqueuer interface {
	Enqueue(ctx context.Context, p *models.NotificationPayload) error
}

// Options tunes the reminder sweep.
type Options struct {
	Interval time.Duration // tick period, defaults to one minute
	CC       string        // optional cc on every notification
	Sender   string        // optional send-on-behalf address
	LogoPath string        // inline image embedded in notifications
}

// Sweep is the reminder pass: it detects due and near-due occurrences,
// enqueues notifications and owns the cursor advance.
type Sweep struct {
	series SeriesStore
	queue  Enqueuer
	log    zerolog.Logger
	opts   Options
}

func New(series SeriesStore, queue Enqueuer, log zerolog.Logger, opts Options) *Sweep {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Sweep{series: series, queue: queue, log: log, opts: opts}
}

// Run ticks until ctx is cancelled. The first pass happens immediately.
func (s *Sweep) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.opts.Interval).Msg("reminder sweep started")
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder sweep stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one reminder pass. A failure in one series is logged with
// its identity and never aborts the pass for the others.
func (s *Sweep) Tick(ctx context.Context) {
	s.tick(ctx, time.Now())
}

func (s *Sweep) tick(ctx context.Context, now time.Time) {
	list, err := s.series.ListLive(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list live series")
		return
	}
	for _, sr := range list {
		if err := s.processSeries(ctx, sr, now); err != nil {
			s.log.Error().Err(err).Int("series_id", sr.SeriesID).Str("name", sr.Name).Msg("process series")
		}
	}
}

func (s *Sweep) processSeries(ctx context.Context, sr *models.Series, now time.Time) error {
	if sr.Ended || sr.CurrentTime.IsZero() {
		return nil
	}
	due := sr.CurrentTime

	if sr.AdvanceFired == nil {
		sr.AdvanceFired = models.AdvanceFired{}
	}
	// Offsets added after the series was created start out unfired.
	sr.AdvanceFired.Backfill(sr.AdvanceOffsets)

	if !now.Before(due) {
		// Final reminder: the occurrence is due, notify and move on.
		if sr.OwnerEmail != "" {
			subject := fmt.Sprintf("[Due] %s", sr.Name)
			if err := s.queue.Enqueue(ctx, s.payload(sr, due, subject, "due now")); err != nil {
				return fmt.Errorf("enqueue final reminder: %w", err)
			}
		}
		s.advance(sr, now)
	} else {
		// Advance window: the smallest unfired threshold that covers
		// the remaining time fires, at most one per tick.
		delta := due.Sub(now)
		for _, day := range sr.AdvanceOffsets.Normalize() {
			if sr.AdvanceFired[day] {
				continue
			}
			if delta <= time.Duration(day)*24*time.Hour {
				if sr.OwnerEmail != "" {
					subject := fmt.Sprintf("[%s ahead] %s", daysText(day), sr.Name)
					note := fmt.Sprintf("%s ahead", daysText(day))
					if err := s.queue.Enqueue(ctx, s.payload(sr, due, subject, note)); err != nil {
						return fmt.Errorf("enqueue advance reminder: %w", err)
					}
				}
				sr.AdvanceFired[day] = true
				break
			}
		}
	}

	if err := s.series.Save(ctx, sr); err != nil {
		return fmt.Errorf("save series: %w", err)
	}
	return nil
}

// advance moves the cursor to the next occurrence after a final
// reminder, or ends the series when the occurrence just resolved was
// the last one it may have.
func (s *Sweep) advance(sr *models.Series, now time.Time) {
	resolvedAt := sr.CurrentTime
	completed := sr.CompletedCount + 1

	var next *time.Time
	if recurrence.HasNext(sr, now) && !(sr.RepeatLimit > 0 && completed >= sr.RepeatLimit) {
		next = recurrence.Next(sr, sr.CurrentTime)
	}
	if next == nil {
		sr.Ended = true
		sr.EndedAt = &resolvedAt
		s.log.Info().Int("series_id", sr.SeriesID).Str("name", sr.Name).Msg("series ended")
		return
	}
	sr.CurrentTime = *next
	sr.CompletedCount = completed
	sr.AdvanceFired = sr.AdvanceOffsets.ResetFired()
}

func (s *Sweep) payload(sr *models.Series, due time.Time, subject, note string) *models.NotificationPayload {
	return &models.NotificationPayload{
		To:             sr.OwnerEmail,
		Cc:             s.opts.CC,
		Sender:         s.opts.Sender,
		Subject:        subject,
		LocalImagePath: s.opts.LogoPath,
		Context: models.NotificationContext{
			Username:          sr.OwnerName,
			SeriesName:        sr.Name,
			Message:           sr.Message,
			OccurrenceTime:    due,
			OccurrenceOrdinal: sr.CompletedCount + 1,
			Repeat:            recurrence.Describe(sr),
			Note:              note,
		},
	}
}

func daysText(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
