package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends application events. Implementations must not block the
// request for long; callers treat a failed publish as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev ApplicationEvent) error
}

// NopPublisher drops every event. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ApplicationEvent) error { return nil }

// AMQPPublisher publishes each event on its own short-lived connection to
// a durable queue named after the event type. Messages are persistent.
type AMQPPublisher struct {
	URL string
	Log *zap.Logger

	// DialTimeout bounds the TCP connect and AMQP handshake. It is
	// shortened further when ctx expires sooner.
	DialTimeout time.Duration
}

const defaultDialTimeout = 2 * time.Second

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log, DialTimeout: defaultDialTimeout}
}

func (p *AMQPPublisher) dialTimeout(ctx context.Context) time.Duration {
	d := p.DialTimeout
	if d <= 0 {
		d = defaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = max(left, time.Millisecond)
		}
	}
	return d
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev ApplicationEvent) error {
	if ev.Type != SubmittedQueue && ev.Type != DecidedQueue {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout(ctx))})
	if err != nil {
		p.Log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ev.Type, true, false, false, false, nil); err != nil {
		p.Log.Warn("rabbitmq queue declare failed", zap.String("queue", ev.Type), zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq publish failed", zap.String("queue", ev.Type), zap.Error(err))
		return err
	}
	return nil
}
