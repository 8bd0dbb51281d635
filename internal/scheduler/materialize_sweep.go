package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mailminder/internal/materialize"
)

// MaterializeSweep keeps the rolling occurrence window full for every
// live series. It is meant to run once a day, driven by cron.
type MaterializeSweep struct {
	series      SeriesStore
	mat         *materialize.Materializer
	log         zerolog.Logger
	horizonDays int
}

func NewMaterializeSweep(series SeriesStore, mat *materialize.Materializer, log zerolog.Logger, horizonDays int) *MaterializeSweep {
	if horizonDays <= 0 {
		horizonDays = materialize.DefaultHorizonDays
	}
	return &MaterializeSweep{series: series, mat: mat, log: log, horizonDays: horizonDays}
}

// Tick re-runs materialization for every live series. Failures are
// isolated per series; the batch that failed is picked up again on the
// next pass.
func (w *MaterializeSweep) Tick(ctx context.Context) {
	now := time.Now()
	list, err := w.series.ListLive(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("list live series")
		return
	}
	total := 0
	for _, sr := range list {
		n, err := w.mat.Materialize(ctx, sr, now, w.horizonDays)
		if err != nil {
			w.log.Error().Err(err).Int("series_id", sr.SeriesID).Str("name", sr.Name).Msg("materialize series")
			continue
		}
		total += n
	}
	w.log.Info().Int("series", len(list)).Int("created", total).Msg("materialization pass finished")
}
