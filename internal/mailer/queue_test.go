package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailminder/internal/models"
)

type recordSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
	gate chan struct{} // when non-nil, Send blocks until released
}

func (s *recordSender) Send(p *models.NotificationPayload) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.fail[p.Subject] {
		return errors.New("transport down")
	}
	s.mu.Lock()
	s.sent = append(s.sent, p.Subject)
	s.mu.Unlock()
	return nil
}

func (s *recordSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func payload(subject string) *models.NotificationPayload {
	return &models.NotificationPayload{To: "sam@example.com", Subject: subject}
}

func TestQueueDeliversInOrder(t *testing.T) {
	t.Parallel()
	sender := &recordSender{}
	q := NewQueue(sender, zerolog.Nop())
	q.Start()

	ctx := context.Background()
	for _, subj := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, payload(subj)); err != nil {
			t.Fatalf("Enqueue(%s) error: %v", subj, err)
		}
	}
	q.Shutdown()

	got := sender.subjects()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("delivered %v, want [a b c]", got)
	}
}

func TestEnqueueBlocksWhileQueueFull(t *testing.T) {
	t.Parallel()
	sender := &recordSender{gate: make(chan struct{})}
	q := NewQueue(sender, zerolog.Nop())
	q.Start()
	ctx := context.Background()

	// First payload is taken by the consumer and stalls in Send; the
	// second fills the single buffer slot.
	if err := q.Enqueue(ctx, payload("a")); err != nil {
		t.Fatalf("Enqueue(a) error: %v", err)
	}
	if err := q.Enqueue(ctx, payload("b")); err != nil {
		t.Fatalf("Enqueue(b) error: %v", err)
	}

	third := make(chan struct{})
	go func() {
		q.Enqueue(ctx, payload("c"))
		close(third)
	}()

	select {
	case <-third:
		t.Fatal("third Enqueue returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	// Releasing one send frees a slot and unblocks the producer.
	sender.gate <- struct{}{}
	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("third Enqueue still blocked after the consumer drained a slot")
	}

	sender.gate <- struct{}{}
	sender.gate <- struct{}{}
	q.Shutdown()

	got := sender.subjects()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("delivered %v, want [a b c]", got)
	}
}

func TestShutdownDrainsPendingPayloads(t *testing.T) {
	t.Parallel()
	sender := &recordSender{}
	q := NewQueue(sender, zerolog.Nop())
	q.Start()

	if err := q.Enqueue(context.Background(), payload("last")); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	q.Shutdown()

	if got := sender.subjects(); len(got) != 1 || got[0] != "last" {
		t.Fatalf("delivered %v, want the pending payload handled before shutdown", got)
	}
}

func TestSendFailureDropsPayloadAndContinues(t *testing.T) {
	t.Parallel()
	sender := &recordSender{fail: map[string]bool{"bad": true}}
	q := NewQueue(sender, zerolog.Nop())
	q.Start()
	ctx := context.Background()

	q.Enqueue(ctx, payload("bad"))
	q.Enqueue(ctx, payload("good"))
	q.Shutdown()

	if got := sender.subjects(); len(got) != 1 || got[0] != "good" {
		t.Fatalf("delivered %v, want [good] with the failed payload dropped", got)
	}
}

func TestEnqueueHonorsContext(t *testing.T) {
	t.Parallel()
	// No consumer: the buffer fills and the second enqueue must give
	// up when its context does.
	q := NewQueue(&recordSender{}, zerolog.Nop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, payload("a")); err != nil {
		t.Fatalf("Enqueue(a) error: %v", err)
	}
	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(cancelled, payload("b")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue error = %v, want deadline exceeded", err)
	}
}
