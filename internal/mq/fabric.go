package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/fabric"
)

// Fabric — реализация fabric.Fabric поверх RabbitMQ.
//
// Submit публикует instance в именованную очередь выполнения и сразу
// возвращает handle (идентификатор instance). События завершения приходят
// от воркеров через очередь результатов и накапливаются в локальной
// таблице handle → report; Poll читает из неё и потому дешёвый и
// неблокирующий, как того требует event loop контроллера.
type Fabric struct {
	conn   *Connection
	pub    *Publisher
	logger *slog.Logger

	mu       sync.RWMutex
	reports  map[fabric.Handle]*fabric.Report
	declared map[string]bool

	consumer *Consumer
}

// NewFabric создаёт фабрику поверх установленного соединения.
func NewFabric(conn *Connection, logger *slog.Logger) *Fabric {
	return &Fabric{
		conn:     conn,
		pub:      NewPublisher(conn, logger),
		logger:   logger,
		reports:  make(map[fabric.Handle]*fabric.Report),
		declared: make(map[string]bool),
	}
}

// Start запускает consumer очереди результатов. Блокируется до отмены ctx.
func (f *Fabric) Start(ctx context.Context) error {
	f.consumer = NewConsumer(f.conn, f.logger, ConsumerConfig{
		Queue:   string(QueueResultsCompleted),
		Handler: f.handleResult,
	})
	return f.consumer.Start(ctx)
}

// handleResult применяет событие завершения к таблице отчётов.
func (f *Fabric) handleResult(ctx context.Context, d *Delivery) error {
	payload, err := ParsePayload[InstanceCompletedPayload](&d.Message)
	if err != nil {
		return fmt.Errorf("parse completed payload: %w", err)
	}

	var status fabric.Status
	switch payload.Status {
	case string(fabric.StatusCompleted):
		status = fabric.StatusCompleted
	case string(fabric.StatusCancelled):
		status = fabric.StatusCancelled
	default:
		status = fabric.StatusFailed
	}

	h := fabric.Handle(payload.InstanceID.String())

	f.mu.Lock()
	f.reports[h] = &fabric.Report{
		Status:  status,
		Outputs: payload.Outputs,
		Error:   payload.Error,
	}
	f.mu.Unlock()

	f.logger.Info("instance result received",
		"instance_id", payload.InstanceID,
		"step", payload.StepName,
		"status", payload.Status,
	)

	return nil
}

// Submit публикует instance в очередь выполнения.
func (f *Fabric) Submit(ctx context.Context, inst *domain.Instance, queue string) (fabric.Handle, error) {
	if err := f.ensureQueue(ctx, queue); err != nil {
		return "", err
	}

	payload := InstanceSubmitPayload{
		InstanceID: inst.ID,
		PipelineID: inst.PipelineID,
		StepName:   inst.StepName,
		Queue:      queue,
		Parameters: inst.Parameters,
		Tags:       inst.Tags,
	}
	if err := f.pub.PublishInstanceSubmit(ctx, payload); err != nil {
		return "", fmt.Errorf("submit instance: %w", err)
	}

	h := fabric.Handle(inst.ID.String())

	f.mu.Lock()
	f.reports[h] = &fabric.Report{Status: fabric.StatusRunning}
	f.mu.Unlock()

	return h, nil
}

// ensureQueue объявляет очередь выполнения, если ещё не объявляли.
func (f *Fabric) ensureQueue(ctx context.Context, queue string) error {
	f.mu.RLock()
	done := f.declared[queue]
	f.mu.RUnlock()
	if done {
		return nil
	}

	if err := DeclareExecutionQueue(ctx, f.conn, queue); err != nil {
		return err
	}

	f.mu.Lock()
	f.declared[queue] = true
	f.mu.Unlock()
	return nil
}

// Poll возвращает последний известный отчёт по handle.
func (f *Fabric) Poll(ctx context.Context, h fabric.Handle) (*fabric.Report, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	report, ok := f.reports[h]
	if !ok {
		return nil, fabric.ErrUnknownHandle
	}

	copied := *report
	return &copied, nil
}

// Cancel публикует запрос отмены всем воркерам.
// Терминальный отчёт придёт обычным путём, через очередь результатов.
func (f *Fabric) Cancel(ctx context.Context, h fabric.Handle) error {
	instanceID, err := uuid.Parse(string(h))
	if err != nil {
		return fmt.Errorf("%w: %s", fabric.ErrUnknownHandle, h)
	}
	return f.pub.PublishInstanceCancel(ctx, instanceID)
}
