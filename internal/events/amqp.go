package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events and notifications to two durable RabbitMQ
// queues through the default exchange.
type AMQPPublisher struct {
	conn               *amqp.Connection
	mu                 sync.Mutex
	ch                 amqpChannel
	eventsQueue        string
	notificationsQueue string
}

// NewAMQPPublisher dials the broker and declares both queues.
func NewAMQPPublisher(cfg config.RabbitMQConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newAMQPPublisher(ch, cfg.EventsQueue, cfg.NotificationsQueue)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, eventsQueue, notificationsQueue string) (*AMQPPublisher, error) {
	for _, q := range []string{eventsQueue, notificationsQueue} {
		if _, err := ch.QueueDeclare(
			q,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return &AMQPPublisher{ch: ch, eventsQueue: eventsQueue, notificationsQueue: notificationsQueue}, nil
}

func (p *AMQPPublisher) PublishApplicationCreated(ctx context.Context, event models.ApplicationCreated) error {
	return p.publish(ctx, p.eventsQueue, "application_created", event)
}

func (p *AMQPPublisher) Notify(ctx context.Context, applicationID uuid.UUID, kind models.NotificationKind, feedback string) error {
	return p.publish(ctx, p.notificationsQueue, string(kind), Notification{
		ApplicationID: applicationID,
		Kind:          kind,
		Feedback:      feedback,
		OccurredAt:    time.Now().UTC(),
	})
}

func (p *AMQPPublisher) publish(ctx context.Context, queue, msgType string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         msgType,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msgType, queue, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Notifier  = (*AMQPPublisher)(nil)
)
