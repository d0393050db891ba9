// Package events publishes ledger events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Shiw2807/payments-service/internal/domain"
)

// amountPayload is the wire form of a monetary amount in events.
type amountPayload struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currencyCode"`
}

// chargeCreatedEvent is published after a charge is recorded.
type chargeCreatedEvent struct {
	EventID    string        `json:"eventId"`
	EventType  string        `json:"eventType"`
	ChargeID   string        `json:"chargeId"`
	OrderID    string        `json:"orderId"`
	CustomerID string        `json:"customerId"`
	Amount     amountPayload `json:"amount"`
	Status     string        `json:"status"`
	Timestamp  string        `json:"timestamp"`
}

// refundCreatedEvent is published after a refund is applied.
type refundCreatedEvent struct {
	EventID        string        `json:"eventId"`
	EventType      string        `json:"eventType"`
	RefundID       string        `json:"refundId"`
	ChargeID       string        `json:"chargeId"`
	OrderID        string        `json:"orderId"`
	CustomerID     string        `json:"customerId"`
	Amount         amountPayload `json:"amount"`
	RefundedAmount string        `json:"refundedAmount"`
	Status         string        `json:"status"`
	Timestamp      string        `json:"timestamp"`
}

// RabbitMQPublisher implements domain.EventPublisher using a topic exchange.
type RabbitMQPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitMQPublisher connects to RabbitMQ and declares the topic exchange.
func NewRabbitMQPublisher(url, exchange, routingKey string) (*RabbitMQPublisher, error) {
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
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("RabbitMQ publisher initialized: exchange=%s, routing_key=%s", exchange, routingKey)

	return &RabbitMQPublisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// PublishChargeCreated publishes a charge.created event.
func (p *RabbitMQPublisher) PublishChargeCreated(ctx context.Context, charge *domain.Charge) error {
	event := chargeCreatedEvent{
		EventID:    uuid.New().String(),
		EventType:  "charge.created",
		ChargeID:   charge.ID,
		OrderID:    charge.OrderID,
		CustomerID: charge.CustomerID,
		Amount: amountPayload{
			Value:        charge.Amount.StringFixed(2),
			CurrencyCode: charge.Currency,
		},
		Status:    string(charge.Status),
		Timestamp: charge.CreatedAt.Format(time.RFC3339),
	}
	return p.publish(ctx, event)
}

// PublishRefundCreated publishes a refund.created event carrying the parent
// charge's updated running total.
func (p *RabbitMQPublisher) PublishRefundCreated(ctx context.Context, refund *domain.Refund, charge *domain.Charge) error {
	event := refundCreatedEvent{
		EventID:    uuid.New().String(),
		EventType:  "refund.created",
		RefundID:   refund.ID,
		ChargeID:   refund.ChargeID,
		OrderID:    charge.OrderID,
		CustomerID: charge.CustomerID,
		Amount: amountPayload{
			Value:        refund.Amount.StringFixed(2),
			CurrencyCode: charge.Currency,
		},
		RefundedAmount: charge.RefundedAmount.StringFixed(2),
		Status:         string(refund.Status),
		Timestamp:      refund.CreatedAt.Format(time.RFC3339),
	}
	return p.publish(ctx, event)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (p *RabbitMQPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("Error closing channel: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
