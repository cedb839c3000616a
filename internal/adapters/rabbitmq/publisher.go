// Package rabbitmq publishes domain events to RabbitMQ. Errors are logged
// and returned so callers can ignore failures without interrupting the main
// request flow.
package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// PaymentConfirmedQueue receives one message per server-verified payment.
const PaymentConfirmedQueue = "booking.payment.confirmed"

// Publisher holds one connection and channel for the process lifetime.
// Messages are marked persistent and the queue is declared durable.
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

// NewPublisher dials the broker and declares the queue.
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		PaymentConfirmedQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, logger: logger}, nil
}

// PublishPaymentConfirmed emits the confirmation event.
func (p *Publisher) PublishPaymentConfirmed(ctx context.Context, event domain.PaymentConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx,
		"",                    // default exchange
		PaymentConfirmedQueue, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		p.logger.Warn("rabbitmq publish failed",
			zap.String("queue", PaymentConfirmedQueue), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	_ = p.ch.Close()
	_ = p.conn.Close()
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

// PublishPaymentConfirmed drops the event.
func (Noop) PublishPaymentConfirmed(ctx context.Context, event domain.PaymentConfirmedEvent) error {
	return nil
}
