package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Conveyor/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeInstanceSubmit    MessageType = "instance.submit"
	MessageTypeInstanceCompleted MessageType = "instance.completed"
	MessageTypeInstanceCancel    MessageType = "instance.cancel"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// InstanceSubmitPayload — payload отправки instance в очередь выполнения.
type InstanceSubmitPayload struct {
	InstanceID uuid.UUID            `json:"instance_id"`
	PipelineID uuid.UUID            `json:"pipeline_id"`
	StepName   string               `json:"step_name"`
	Queue      string               `json:"queue"`
	Parameters domain.Configuration `json:"parameters"`
	Tags       []string             `json:"tags,omitempty"`
}

// InstanceCompletedPayload — payload о завершении выполнения instance.
type InstanceCompletedPayload struct {
	InstanceID uuid.UUID         `json:"instance_id"`
	PipelineID uuid.UUID         `json:"pipeline_id"`
	StepName   string            `json:"step_name"`
	Status     string            `json:"status"` // completed / failed / cancelled
	Outputs    map[string]string `json:"outputs,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// InstanceCancelPayload — payload запроса отмены instance.
type InstanceCancelPayload struct {
	InstanceID uuid.UUID `json:"instance_id"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishInstanceSubmit публикует instance в именованную очередь выполнения.
// Потребитель: Worker, подписанный на эту очередь.
func (p *Publisher) PublishInstanceSubmit(ctx context.Context, payload InstanceSubmitPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeInstanceSubmit,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTasks, RoutingKey(payload.Queue), msg)
}

// PublishInstanceCompleted публикует событие о завершении instance.
// Потребитель: Controller (через mq.Fabric).
func (p *Publisher) PublishInstanceCompleted(ctx context.Context, payload InstanceCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeInstanceCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeResults, RoutingKeyCompleted, msg)
}

// PublishInstanceCancel публикует запрос отмены всем воркерам.
func (p *Publisher) PublishInstanceCancel(ctx context.Context, instanceID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeInstanceCancel,
		Payload:   InstanceCancelPayload{InstanceID: instanceID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeControl, "", msg)
}
