package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is used when no queue name is configured
const DefaultQueue = "quill.events"

// AMQPPublisher sends events to a durable RabbitMQ queue
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// DialAMQP connects to RabbitMQ and declares the queue
func DialAMQP(url, queue string) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare rabbitmq queue %s: %w", queue, err)
	}

	log.Println("RabbitMQ initialized, queue:", queue)
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish sends the event as a persistent JSON message
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := Marshal(e)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         e.Type,
		Timestamp:    e.Timestamp,
		Body:         body,
	})
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Marshal encodes an event as a message body
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Connect returns a RabbitMQ publisher when url is set, a log publisher otherwise
func Connect(url, queue string) (Publisher, error) {
	if url == "" {
		log.Println("rabbitmq url empty, logging events instead")
		return NewLogPublisher(), nil
	}
	p, err := DialAMQP(url, queue)
	if err != nil {
		return nil, err
	}
	return p, nil
}
