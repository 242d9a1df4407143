package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	logger.Info("✅ Connected to RabbitMQ")

	return &RabbitMQ{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// DeclareFanout creates a fanout exchange if it doesn't exist
func (r *RabbitMQ) DeclareFanout(name string) error {
	err := r.channel.ExchangeDeclare(
		name,     // exchange name
		"fanout", // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	r.logger.Info("✅ Exchange declared", zap.String("exchange", name))
	return nil
}

// BindExclusiveQueue creates a server-named queue private to this
// connection and binds it to exchange, so every instance gets its own copy
// of each message.
func (r *RabbitMQ) BindExclusiveQueue(exchange string) (string, error) {
	q, err := r.channel.QueueDeclare(
		"",    // server-generated name
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := r.channel.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind queue: %w", err)
	}

	r.logger.Info("✅ Queue bound", zap.String("queue", q.Name), zap.String("exchange", exchange))
	return q.Name, nil
}

// Publish sends a message to an exchange
func (r *RabbitMQ) Publish(ctx context.Context, exchange string, message []byte) error {
	err := r.channel.PublishWithContext(ctx,
		exchange, // exchange
		"",       // routing key (ignored by fanout)
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        message,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	r.logger.Info("📤 Message published", zap.String("exchange", exchange))
	return nil
}

// Consume receives messages from a queue
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	messages, err := r.channel.Consume(
		queue, // queue name
		"",    // consumer tag
		false, // auto-ack (false = manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	r.logger.Info("👂 Listening on queue", zap.String("queue", queue))
	return messages, nil
}

// Close closes the connection
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
