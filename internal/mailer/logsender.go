package mailer

import (
	"github.com/rs/zerolog"

	"mailminder/internal/models"
)

// LogSender writes payloads to the log instead of delivering them. It
// stands in when no real transport is wired up, so the daemon runs end
// to end without a mail account.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(p *models.NotificationPayload) error {
	s.log.Info().
		Str("to", p.To).
		Str("cc", p.Cc).
		Str("subject", p.Subject).
		Str("series", p.Context.SeriesName).
		Time("occurrence", p.Context.OccurrenceTime).
		Int("ordinal", p.Context.OccurrenceOrdinal).
		Str("repeat", p.Context.Repeat).
		Str("note", p.Context.Note).
		Msg("notification")
	return nil
}
