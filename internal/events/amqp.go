package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
)

// AMQPPublisher publishes events to a durable topic exchange on RabbitMQ
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string

	mu     sync.RWMutex
	closed bool
}

// NewAMQPPublisher connects to RabbitMQ and declares the events exchange
func NewAMQPPublisher(cfg config.EventsConfig) (*AMQPPublisher, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

// Publish sends one event, routed by its type
func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	msg, err := buildPublishing(evt)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		evt.Type,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		metrics.RecordEventPublished(evt.Type, "error")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordEventPublished(evt.Type, "success")
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func buildPublishing(evt Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    evt.JobID + ":" + evt.Type,
		Body:         body,
		Timestamp:    evt.Timestamp,
	}, nil
}
