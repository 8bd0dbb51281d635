// Package mailer decouples the sweeps from the slow outbound send path.
package mailer

import (
	"context"

	"github.com/rs/zerolog"

	"mailminder/internal/models"
)

// Sender delivers one payload to the outside world. Implementations may
// block for as long as the transport takes; a failure is logged by the
// queue consumer and the payload is dropped.
type Sender interface {
	Send(p *models.NotificationPayload) error
}

// Queue serializes outbound notifications through a single consumer.
// It holds at most one pending payload: when the consumer falls behind,
// Enqueue blocks, throttling the sweeps instead of piling up mail.
type Queue struct {
	sender Sender
	log    zerolog.Logger
	ch     chan *models.NotificationPayload
	done   chan struct{}
}

func NewQueue(sender Sender, log zerolog.Logger) *Queue {
	return &Queue{
		sender: sender,
		log:    log,
		ch:     make(chan *models.NotificationPayload, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the consumer loop.
func (q *Queue) Start() {
	go q.consume()
}

func (q *Queue) consume() {
	defer close(q.done)
	for p := range q.ch {
		if p == nil { // shutdown sentinel
			return
		}
		if err := q.sender.Send(p); err != nil {
			// No retry and no dead-letter: log and move on.
			q.log.Error().Err(err).Str("to", p.To).Str("subject", p.Subject).Msg("send notification")
			continue
		}
		q.log.Debug().Str("to", p.To).Str("subject", p.Subject).Msg("notification sent")
	}
}

// Enqueue blocks until the queue has room for p, or ctx is cancelled.
// Calling Enqueue after Shutdown has begun is a caller error.
func (q *Queue) Enqueue(ctx context.Context, p *models.NotificationPayload) error {
	select {
	case q.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the consumer once every payload enqueued before the
// call has been handed to the sender, and waits for it to exit.
func (q *Queue) Shutdown() {
	q.ch <- nil
	<-q.done
}
