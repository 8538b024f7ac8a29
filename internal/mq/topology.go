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

// Exchanges — имена обменников.
const (
	// ExchangeTasks маршрутизирует instances в очереди выполнения.
	// Routing key равен имени очереди: новая очередь выполнения — это
	// просто новая привязка, без изменения топологии.
	ExchangeTasks Exchange = "conveyor.tasks"

	// ExchangeResults — события завершения instances от воркеров.
	ExchangeResults Exchange = "conveyor.results"

	// ExchangeControl — fanout для запросов отмены: каждый воркер
	// получает каждый запрос и отменяет, если instance его.
	ExchangeControl Exchange = "conveyor.control"

	// ExchangeDLQ — dead letter queue.
	ExchangeDLQ Exchange = "conveyor.dlq"
)

// Queues — статические очереди.
const (
	QueueResultsCompleted Queue = "results.completed"
	QueueDLQTasks         Queue = "dlq.tasks"
)

// Routing keys.
const (
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQTasks  RoutingKey = "tasks"
)

// SetupTopology объявляет обменники и статические очереди.
// Очереди выполнения объявляются отдельно, по именам (DeclareExecutionQueue).
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareStaticQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeTasks, "direct"},
		{ExchangeResults, "direct"},
		{ExchangeControl, "fanout"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareStaticQueues создаёт статические очереди и их привязки.
func declareStaticQueues(ch *amqp.Channel) error {
	queues := []struct {
		name       Queue
		exchange   Exchange
		routingKey RoutingKey
	}{
		{QueueResultsCompleted, ExchangeResults, RoutingKeyCompleted},
		{QueueDLQTasks, ExchangeDLQ, RoutingKeyDLQTasks},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			nil,            // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}

		if err := ch.QueueBind(
			string(q.name),       // queue name
			string(q.routingKey), // routing key
			string(q.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
		}
	}

	return nil
}

// DeclareExecutionQueue объявляет именованную очередь выполнения и
// привязывает её к ExchangeTasks по собственному имени.
//
// Идемпотентно: контроллер объявляет очереди перед dispatch, воркер —
// перед consume; кто пришёл первым, тот и создал.
func DeclareExecutionQueue(ctx context.Context, conn *Connection, name string) error {
	if name == "" {
		return fmt.Errorf("execution queue has empty name")
	}

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		args := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQTasks),
		}

		if _, err := ch.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			args,  // arguments
		); err != nil {
			return fmt.Errorf("declare execution queue %s: %w", name, err)
		}

		if err := ch.QueueBind(
			name,                 // queue name
			name,                 // routing key (имя очереди)
			string(ExchangeTasks), // exchange
			false,                // no-wait
			nil,                  // arguments
		); err != nil {
			return fmt.Errorf("bind execution queue %s: %w", name, err)
		}

		return nil
	})
}

// DeclareControlQueue объявляет эксклюзивную очередь воркера и
// привязывает её к fanout-обменнику отмен. Возвращает имя очереди,
// сгенерированное брокером.
func DeclareControlQueue(ctx context.Context, conn *Connection) (string, error) {
	var queueName string

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // name (auto-generated)
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare control queue: %w", err)
		}

		if err := ch.QueueBind(
			q.Name,                  // queue name
			"",                      // routing key (fanout игнорирует)
			string(ExchangeControl), // exchange
			false,                   // no-wait
			nil,                     // arguments
		); err != nil {
			return fmt.Errorf("bind control queue: %w", err)
		}

		queueName = q.Name
		return nil
	})

	return queueName, err
}
