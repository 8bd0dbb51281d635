package materialize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailminder/internal/models"
)

// memStore mimics the occurrences table, including its unique
// (series, time) constraint.
type memStore struct {
	occs     []*models.Occurrence
	failNext bool
	nextID   int
}

func (m *memStore) LatestForSeries(_ context.Context, seriesID int) (*models.Occurrence, error) {
	var latest *models.Occurrence
	for _, o := range m.occs {
		if o.SeriesID != seriesID {
			continue
		}
		if latest == nil || o.OccurrenceTime.After(latest.OccurrenceTime) {
			latest = o
		}
	}
	return latest, nil
}

func (m *memStore) BulkInsert(_ context.Context, batch []*models.Occurrence) error {
	if m.failNext {
		m.failNext = false
		return errors.New("insert failed")
	}
	for _, o := range batch {
		for _, existing := range m.occs {
			if existing.SeriesID == o.SeriesID && existing.OccurrenceTime.Equal(o.OccurrenceTime) {
				return fmt.Errorf("duplicate occurrence at %v", o.OccurrenceTime)
			}
		}
	}
	for _, o := range batch {
		m.nextID++
		o.OccurrenceID = m.nextID
		m.occs = append(m.occs, o)
	}
	return nil
}

func at(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 9, 0, 0, 0, time.UTC)
}

func weeklySeries() *models.Series {
	start := at(2024, 1, 1)
	return &models.Series{
		SeriesID:       1,
		UserID:         10,
		RepeatUnit:     models.RepeatWeeks,
		RepeatInterval: 0,
		RepeatLimit:    -1,
		StartTime:      start,
		CurrentTime:    start,
	}
}

func TestMaterializeWeeklyWindow(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	m := New(store, zerolog.Nop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := m.Materialize(context.Background(), weeklySeries(), now, 30)
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if n != 5 {
		t.Fatalf("created %d occurrences, want 5", n)
	}
	want := []time.Time{at(2024, 1, 1), at(2024, 1, 8), at(2024, 1, 15), at(2024, 1, 22), at(2024, 1, 29)}
	for i, o := range store.occs {
		if !o.OccurrenceTime.Equal(want[i]) {
			t.Fatalf("occurrence %d at %v, want %v", i, o.OccurrenceTime, want[i])
		}
		if o.OccurrenceIndex != i+1 {
			t.Fatalf("occurrence %d index %d, want %d", i, o.OccurrenceIndex, i+1)
		}
		if o.UserID != 10 || o.SeriesID != 1 {
			t.Fatalf("occurrence %d carries wrong ownership: %+v", i, o)
		}
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	m := New(store, zerolog.Nop())
	s := weeklySeries()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := m.Materialize(context.Background(), s, now, 30); err != nil {
		t.Fatalf("first Materialize error: %v", err)
	}
	// A smaller, overlapping horizon must add nothing.
	n, err := m.Materialize(context.Background(), s, now, 20)
	if err != nil {
		t.Fatalf("second Materialize error: %v", err)
	}
	if n != 0 {
		t.Fatalf("second call created %d occurrences, want 0", n)
	}
	if len(store.occs) != 5 {
		t.Fatalf("store holds %d occurrences, want 5", len(store.occs))
	}

	// A wider horizon extends the window without touching what exists.
	n, err = m.Materialize(context.Background(), s, now, 45)
	if err != nil {
		t.Fatalf("third Materialize error: %v", err)
	}
	if n != 2 {
		t.Fatalf("third call created %d occurrences, want 2", n)
	}
	last := store.occs[len(store.occs)-1]
	if !last.OccurrenceTime.Equal(at(2024, 2, 12)) || last.OccurrenceIndex != 7 {
		t.Fatalf("window extended to %v index %d, want %v index 7", last.OccurrenceTime, last.OccurrenceIndex, at(2024, 2, 12))
	}
}

func TestMaterializeRespectsRepeatLimit(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	m := New(store, zerolog.Nop())
	s := weeklySeries()
	s.RepeatLimit = 3
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := m.Materialize(context.Background(), s, now, 365)
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if n != 3 {
		t.Fatalf("created %d occurrences, want 3", n)
	}
	for _, o := range store.occs {
		if o.RemainingRepeats != 3 {
			t.Fatalf("remaining repeats %d, want 3", o.RemainingRepeats)
		}
	}
	// The series is fully materialized; nothing more to add.
	if n, _ := m.Materialize(context.Background(), s, now, 365); n != 0 {
		t.Fatalf("re-run created %d occurrences, want 0", n)
	}
}

func TestMaterializeNonRepeating(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	m := New(store, zerolog.Nop())
	start := at(2024, 3, 1)
	s := &models.Series{
		SeriesID:       2,
		UserID:         10,
		RepeatUnit:     models.RepeatNone,
		RepeatInterval: -1,
		RepeatLimit:    -1,
		StartTime:      start,
		CurrentTime:    start,
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if n, err := m.Materialize(context.Background(), s, now, 365); err != nil || n != 1 {
		t.Fatalf("Materialize = (%d, %v), want one occurrence", n, err)
	}
	if n, err := m.Materialize(context.Background(), s, now, 365); err != nil || n != 0 {
		t.Fatalf("re-run = (%d, %v), want no new occurrences", n, err)
	}
}

func TestMaterializeContinuesAfterCursorAdvance(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	m := New(store, zerolog.Nop())
	s := weeklySeries()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := m.Materialize(context.Background(), s, now, 30); err != nil {
		t.Fatalf("Materialize error: %v", err)
	}

	// The sweep resolved two occurrences since the last pass.
	s.CurrentTime = at(2024, 1, 15)
	s.CompletedCount = 2
	later := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	n, err := m.Materialize(context.Background(), s, later, 30)
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if n != 1 {
		t.Fatalf("created %d occurrences, want 1", n)
	}
	last := store.occs[len(store.occs)-1]
	if !last.OccurrenceTime.Equal(at(2024, 2, 5)) || last.OccurrenceIndex != 6 {
		t.Fatalf("continuation at %v index %d, want %v index 6", last.OccurrenceTime, last.OccurrenceIndex, at(2024, 2, 5))
	}
}

func TestMaterializeFailedBatchRetries(t *testing.T) {
	t.Parallel()
	store := &memStore{failNext: true}
	m := New(store, zerolog.Nop())
	s := weeklySeries()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := m.Materialize(context.Background(), s, now, 30); err == nil {
		t.Fatal("expected insert failure")
	}
	if len(store.occs) != 0 {
		t.Fatalf("failed batch left %d occurrences behind", len(store.occs))
	}
	// The next pass picks the same window up again.
	if n, err := m.Materialize(context.Background(), s, now, 30); err != nil || n != 5 {
		t.Fatalf("retry = (%d, %v), want 5 occurrences", n, err)
	}
}
