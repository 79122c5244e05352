package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Tradeflow/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionStarted  MessageType = "execution.started"
	MessageTypeExecutionFinished MessageType = "execution.finished"
)

// Publisher публикует события executions в RabbitMQ.
// Реализует engine.EventPublisher.
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

// Message — конверт сообщения.
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

// ExecutionStartedPayload — payload события о запуске execution.
type ExecutionStartedPayload struct {
	ExecutionID   uuid.UUID `json:"execution_id"`
	WorkflowID    uuid.UUID `json:"workflow_id"`
	TriggerSource string    `json:"trigger_source"`
	StartedAt     time.Time `json:"started_at"`
}

// ExecutionFinishedPayload — payload события о завершении execution.
type ExecutionFinishedPayload struct {
	ExecutionID   uuid.UUID  `json:"execution_id"`
	WorkflowID    uuid.UUID  `json:"workflow_id"`
	Status        string     `json:"status"`
	TriggerSource string     `json:"trigger_source"`
	NodesExecuted int        `json:"nodes_executed"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// ExecutionStarted публикует событие о запуске execution.
// Fire-and-forget: ошибка публикации только пишется в журнал.
func (p *Publisher) ExecutionStarted(ctx context.Context, exec *domain.Execution) {
	payload := ExecutionStartedPayload{
		ExecutionID:   exec.ID,
		WorkflowID:    exec.WorkflowID,
		TriggerSource: exec.TriggerSource,
		StartedAt:     exec.StartedAt,
	}

	if err := p.publish(ctx, RoutingKeyStarted, MessageTypeExecutionStarted, payload); err != nil {
		p.logger.Warn("failed to publish execution.started",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}

// ExecutionFinished публикует событие о завершении execution.
func (p *Publisher) ExecutionFinished(ctx context.Context, exec *domain.Execution) {
	payload := ExecutionFinishedPayload{
		ExecutionID:   exec.ID,
		WorkflowID:    exec.WorkflowID,
		Status:        string(exec.Status),
		TriggerSource: exec.TriggerSource,
		NodesExecuted: len(exec.Logs),
		FinishedAt:    exec.FinishedAt,
	}
	if exec.Error != nil {
		payload.Error = exec.Error.Message
	}

	if err := p.publish(ctx, RoutingKeyFinished, MessageTypeExecutionFinished, payload); err != nil {
		p.logger.Warn("failed to publish execution.finished",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}

// publish собирает конверт и отправляет его в обменник executions.
func (p *Publisher) publish(ctx context.Context, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeExecutions),
			string(routingKey),
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
			return fmt.Errorf("publish to %s/%s: %w", ExchangeExecutions, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}
