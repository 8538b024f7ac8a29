package worker

import (
	"context"
	"errors"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/fabric"
	"github.com/shaiso/Conveyor/internal/mq"
)

// handleSubmit обрабатывает instance из очереди выполнения.
func (w *Worker) handleSubmit(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.InstanceSubmitPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse instance.submit payload", "error", err)
		return err
	}

	w.logger.Info("instance received",
		"instance_id", payload.InstanceID,
		"pipeline_id", payload.PipelineID,
		"step", payload.StepName,
		"queue", payload.Queue,
	)

	inst := &domain.Instance{
		ID:         payload.InstanceID,
		StepName:   payload.StepName,
		PipelineID: payload.PipelineID,
		Parameters: payload.Parameters,
		Tags:       payload.Tags,
	}

	result, execErr := w.execute(ctx, inst)

	completed := mq.InstanceCompletedPayload{
		InstanceID: payload.InstanceID,
		PipelineID: payload.PipelineID,
		StepName:   payload.StepName,
	}

	switch {
	case errors.Is(execErr, context.Canceled):
		completed.Status = string(fabric.StatusCancelled)
		completed.Error = "cancelled"
		w.logger.Info("instance cancelled", "instance_id", payload.InstanceID)

	case execErr != nil:
		completed.Status = string(fabric.StatusFailed)
		completed.Error = execErr.Error()
		w.logger.Warn("instance failed",
			"instance_id", payload.InstanceID,
			"step", payload.StepName,
			"error", execErr,
		)

	case result.Error != "":
		completed.Status = string(fabric.StatusFailed)
		completed.Error = result.Error
		completed.Outputs = result.Outputs
		w.logger.Warn("instance failed",
			"instance_id", payload.InstanceID,
			"step", payload.StepName,
			"error", result.Error,
		)

	default:
		completed.Status = string(fabric.StatusCompleted)
		completed.Outputs = result.Outputs
		w.logger.Info("instance completed",
			"instance_id", payload.InstanceID,
			"step", payload.StepName,
			"outputs", len(result.Outputs),
		)
	}

	if err := w.publisher.PublishInstanceCompleted(ctx, completed); err != nil {
		w.logger.Error("failed to publish instance.completed",
			"instance_id", payload.InstanceID,
			"error", err,
		)
		// Возвращаем в очередь: результат не доставлен, instance
		// будет выполнен повторно после переподключения
		return err
	}

	return nil
}

// execute выполняет instance выбранным executor'ом с поддержкой отмены.
func (w *Worker) execute(ctx context.Context, inst *domain.Instance) (*ExecutionResult, error) {
	executor, err := w.registry.ForInstance(inst)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	untrack := w.track(inst.ID, cancel)
	defer untrack()

	result, err := executor.Execute(execCtx, inst)
	if err != nil {
		// Отмена из control-очереди приходит как context.Canceled
		if execCtx.Err() != nil && ctx.Err() == nil {
			return nil, context.Canceled
		}
		return nil, err
	}
	return result, nil
}

// handleCancel обрабатывает запрос отмены из fanout-обменника.
//
// Запрос получают все воркеры; прерывает instance тот, на ком он
// выполняется, остальные молча подтверждают сообщение.
func (w *Worker) handleCancel(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.InstanceCancelPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse instance.cancel payload", "error", err)
		return err
	}

	if w.cancelInstance(payload.InstanceID) {
		w.logger.Info("cancel request applied", "instance_id", payload.InstanceID)
	}

	return nil
}
