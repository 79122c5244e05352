package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Топология событий: один direct-обменник, очередь на каждый вид события.
const (
	ExchangeExecutions Exchange = "tradeflow.executions"

	QueueExecutionsStarted  Queue = "executions.started"
	QueueExecutionsFinished Queue = "executions.finished"

	RoutingKeyStarted  RoutingKey = "started"
	RoutingKeyFinished RoutingKey = "finished"
)

// SetupTopology объявляет обменник, очереди и привязки.
// Операции идемпотентны: повторный вызов на живом брокере безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeExecutions), // name
			"direct",                   // type
			true,                       // durable
			false,                      // auto-deleted
			false,                      // internal
			false,                      // no-wait
			nil,                        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeExecutions, err)
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
		}{
			{QueueExecutionsStarted, RoutingKeyStarted},
			{QueueExecutionsFinished, RoutingKeyFinished},
		}

		for _, b := range bindings {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(ExchangeExecutions),
				false, // no-wait
				nil,   // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}
