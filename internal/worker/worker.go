package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Conveyor/internal/mq"
)

// Default configuration values.
const (
	defaultPrefetch = 5
)

// Worker выполняет instances из очередей выполнения.
//
// Worker — stateless компонент системы, который:
//   - Потребляет instances из одной или нескольких именованных очередей
//   - Выполняет instance выбранным Executor'ом
//   - Слушает fanout-обменник отмен и прерывает свои instances
//   - Публикует результат в очередь результатов
type Worker struct {
	// MQ
	conn      *mq.Connection
	publisher *mq.Publisher

	// Executor registry
	registry *Registry

	// Configuration
	queues   []string
	prefetch int

	// Активные instances этого воркера (для обработки отмен)
	runningMu sync.Mutex
	running   map[uuid.UUID]context.CancelFunc

	// Lifecycle
	logger     *slog.Logger
	consumers  []*mq.Consumer
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	// Conn — соединение с RabbitMQ (обязательно).
	Conn *mq.Connection

	// Queues — имена очередей выполнения для подписки (обязательно).
	Queues []string

	// Registry — реестр executor'ов (опционально; если nil — NewRegistry()).
	Registry *Registry

	// Prefetch — количество сообщений для предварительной загрузки (default: 5).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Worker{
		conn:      cfg.Conn,
		publisher: mq.NewPublisher(cfg.Conn, logger),
		registry:  registry,
		queues:    append([]string(nil), cfg.Queues...),
		prefetch:  prefetch,
		running:   make(map[uuid.UUID]context.CancelFunc),
		logger:    logger,
	}
}

// Start запускает Worker.
//
// Объявляет очереди выполнения, запускает по consumer'у на очередь
// и consumer для запросов отмены.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"queues", w.queues,
		"prefetch", w.prefetch,
	)

	for _, queue := range w.queues {
		if err := mq.DeclareExecutionQueue(ctx, w.conn, queue); err != nil {
			return err
		}

		consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    queue,
			Handler:  w.handleSubmit,
			Prefetch: w.prefetch,
		})
		w.consumers = append(w.consumers, consumer)

		queue := queue
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("execution consumer error", "queue", queue, "error", err)
			}
		}()
	}

	controlQueue, err := mq.DeclareControlQueue(ctx, w.conn)
	if err != nil {
		return err
	}

	control := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:   controlQueue,
		Handler: w.handleCancel,
	})
	w.consumers = append(w.consumers, control)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := control.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("control consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается активных instances.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	for _, consumer := range w.consumers {
		consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// track регистрирует активный instance и возвращает функцию снятия.
func (w *Worker) track(id uuid.UUID, cancel context.CancelFunc) func() {
	w.runningMu.Lock()
	w.running[id] = cancel
	w.runningMu.Unlock()

	return func() {
		w.runningMu.Lock()
		delete(w.running, id)
		w.runningMu.Unlock()
	}
}

// cancelInstance прерывает instance, если он выполняется на этом воркере.
func (w *Worker) cancelInstance(id uuid.UUID) bool {
	w.runningMu.Lock()
	cancel, ok := w.running[id]
	w.runningMu.Unlock()

	if ok {
		cancel()
	}
	return ok
}
