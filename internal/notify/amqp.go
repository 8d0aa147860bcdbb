package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue notifications are published to.
const DefaultQueue = "catalog.notifications"

// Publisher is the subset of *amqp.Channel used by AMQPSender.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes notifications to a durable queue for an external mail relay.
type AMQPSender struct {
	publisher Publisher
	queue     string
	conn      *amqp.Connection
	channel   *amqp.Channel
}

// NewAMQPSender creates an AMQPSender over an existing publisher.
func NewAMQPSender(publisher Publisher, queue string) *AMQPSender {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPSender{publisher: publisher, queue: queue}
}

// DialAMQP connects to the broker, opens a channel and declares the queue.
func DialAMQP(url, queue string) (*AMQPSender, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	s := NewAMQPSender(ch, queue)
	s.conn = conn
	s.channel = ch
	return s, nil
}

// Send publishes msg as persistent JSON.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = s.publisher.PublishWithContext(ctx,
		"",      // default exchange
		s.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close releases the channel and connection opened by DialAMQP.
func (s *AMQPSender) Close() error {
	var errs []error
	if s.channel != nil {
		errs = append(errs, s.channel.Close())
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	return errors.Join(errs...)
}
