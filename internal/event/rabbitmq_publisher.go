package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyLoanCreated           = "loan.created"
	routingKeyLoanFunded            = "loan.funded"
	routingKeyLoanRepaid            = "loan.repaid"
	routingKeyLoanLiquidated        = "loan.liquidated"
	routingKeyPlatformFeeUpdated    = "protocol.fee_updated"
	routingKeyDurationLimitsUpdated = "protocol.duration_limits_updated"
	publisherAppID                  = "lending-engine"
)

type RabbitMQEventPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQEventPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}

func (p *RabbitMQEventPublisher) PublishLoanCreated(ctx context.Context, e LoanCreatedEvent) error {
	return p.publish(ctx, routingKeyLoanCreated, e)
}

func (p *RabbitMQEventPublisher) PublishLoanFunded(ctx context.Context, e LoanFundedEvent) error {
	return p.publish(ctx, routingKeyLoanFunded, e)
}

func (p *RabbitMQEventPublisher) PublishLoanRepaid(ctx context.Context, e LoanRepaidEvent) error {
	return p.publish(ctx, routingKeyLoanRepaid, e)
}

func (p *RabbitMQEventPublisher) PublishLoanLiquidated(ctx context.Context, e LoanLiquidatedEvent) error {
	return p.publish(ctx, routingKeyLoanLiquidated, e)
}

func (p *RabbitMQEventPublisher) PublishPlatformFeeUpdated(ctx context.Context, e PlatformFeeUpdatedEvent) error {
	return p.publish(ctx, routingKeyPlatformFeeUpdated, e)
}

func (p *RabbitMQEventPublisher) PublishDurationLimitsUpdated(ctx context.Context, e DurationLimitsUpdatedEvent) error {
	return p.publish(ctx, routingKeyDurationLimitsUpdated, e)
}
