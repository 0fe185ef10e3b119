package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer reads both event queues and appends one line per event
// to an audit log file.
type AuditConsumer struct {
	URL  string
	Path string // audit log file, created with its directory on demand
	Log  *zap.Logger

	mu sync.Mutex // serialises appends from the two queue loops
}

// NewAuditConsumer returns a consumer writing to path.
func NewAuditConsumer(url, path string, log *zap.Logger) *AuditConsumer {
	return &AuditConsumer{URL: url, Path: path, Log: log}
}

// Run connects to the broker and consumes until ctx is cancelled. Dial
// failures and dropped connections are retried with exponential backoff
// capped at 30s.
func (c *AuditConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.Log.Warn("audit consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}

	var deliveries []<-chan amqp.Delivery
	for _, name := range []string{SubmittedQueue, DecidedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		deliveries = append(deliveries, msgs)
	}

	errc := make(chan error, len(deliveries))
	for _, msgs := range deliveries {
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				if err := c.Handle(d.Body); err != nil {
					c.Log.Warn("audit consumer: handle message failed", zap.Error(err))
					_ = d.Nack(false, false) // reject without requeue to avoid tight loops
					continue
				}
				_ = d.Ack(false)
			}
			errc <- errors.New("deliveries channel closed")
		}(msgs)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

// Handle decodes one event body and appends it to the audit log.
func (c *AuditConsumer) Handle(body []byte) error {
	var ev ApplicationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ApplicationID == "" {
		return errors.New("event without application_id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatLine renders ev as one audit log line.
func FormatLine(ev ApplicationEvent) string {
	switch ev.Type {
	case SubmittedQueue:
		return fmt.Sprintf("[%s] Application submitted | application_id=%s | applicant_id=%s | program_id=%s | status=%s | by=%s | backend=%s\n",
			ev.OccurredAt, ev.ApplicationID, ev.ApplicantID, ev.ProgramID, ev.Status, ev.Actor, ev.Backend)
	case DecidedQueue:
		return fmt.Sprintf("[%s] Application decided | application_id=%s | status=%s | by=%s | backend=%s\n",
			ev.OccurredAt, ev.ApplicationID, ev.Status, ev.Actor, ev.Backend)
	}
	return fmt.Sprintf("[%s] Application event %q | application_id=%s | status=%s\n",
		ev.OccurredAt, ev.Type, ev.ApplicationID, ev.Status)
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
