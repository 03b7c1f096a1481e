package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SessionQueue is the durable queue carrying session lifecycle events.
const SessionQueue = "dashboard.session"

// AMQPPublisher publishes session events to RabbitMQ. Each event opens its
// own connection. Notify logs and drops errors.
type AMQPPublisher struct {
	URL     string
	Queue   string
	Timeout time.Duration
	Logger  *zap.SugaredLogger
}

// NewAMQPPublisher returns a publisher for url on SessionQueue.
func NewAMQPPublisher(url string, logger *zap.SugaredLogger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: SessionQueue, Timeout: 3 * time.Second, Logger: logger}
}

func (p *AMQPPublisher) Notify(ctx context.Context, ev SessionEvent) {
	if err := p.Publish(ctx, ev); err != nil {
		p.Logger.Warnw("session event not published", "type", ev.Type, "session", ev.SessionID, "error", err)
	}
}

// Publish sends ev as a persistent JSON message on the configured queue.
func (p *AMQPPublisher) Publish(ctx context.Context, ev SessionEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// detach from the request so a client hang-up does not abort the publish
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.Timeout)
	defer cancel()
	return ch.PublishWithContext(pubCtx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
}
