package controller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/fabric"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

const (
	// maxDispatchFailures — сколько раз подряд Submit может упасть,
	// прежде чем шаг переводится в FAILED.
	maxDispatchFailures = 3

	// maxPollBackoffShift ограничивает экспоненциальный backoff poll'а:
	// интервал не превышает pollInterval * 2^maxPollBackoffShift.
	maxPollBackoffShift = 5
)

// run — тело event loop. Единственная горутина, мутирующая статусы шагов
// после Start. Возвращается по терминальному статусу pipeline либо по
// отмене контекста; в обоих случаях финализирует pipeline.
func (c *Controller) run(ctx context.Context) {
	defer c.finalize()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Первый тик — немедленно: корневые шаги уходят на фабрику
	// без ожидания первого интервала.
	if c.tick(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx) {
				return
			}
		}
	}
}

// pollOutcome — результат опроса одного handle.
type pollOutcome struct {
	step   string
	report *fabric.Report
	err    error
}

// tick выполняет один проход event loop:
//
//  1. Конкурентный poll всех in-flight handles (с backoff по ошибкам)
//  2. Применение отчётов к статусам шагов
//  3. Каскадный SKIPPED для потомков упавших шагов
//  4. Инстанцирование и dispatch готовых шагов
//  5. Проверка терминальности pipeline
//
// Возвращает true, когда pipeline достиг терминального статуса.
func (c *Controller) tick(ctx context.Context) bool {
	outcomes := c.pollInFlight(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyOutcomes(outcomes)
	c.propagateSkips()
	c.dispatchReady(ctx)
	c.propagateSkips()

	return c.checkTerminal()
}

// pollInFlight опрашивает все in-flight handles конкурентно.
//
// Каждый poll ограничен pollTimeout; ошибка одного handle не отменяет
// остальные (горутины errgroup всегда возвращают nil). Handles, для
// которых действует backoff, пропускаются до наступления nextPoll.
func (c *Controller) pollInFlight(ctx context.Context) []pollOutcome {
	now := time.Now()

	c.mu.RLock()
	due := make(map[string]fabric.Handle)
	for name, handle := range c.handles {
		if !c.steps[name].Status.InFlight() {
			continue
		}
		if until, ok := c.nextPoll[name]; ok && now.Before(until) {
			continue
		}
		due[name] = handle
	}
	c.mu.RUnlock()

	if len(due) == 0 {
		return nil
	}

	outcomes := make([]pollOutcome, 0, len(due))
	var outMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, handle := range due {
		name, handle := name, handle
		g.Go(func() error {
			pollCtx, cancel := context.WithTimeout(gctx, c.pollTimeout)
			defer cancel()

			report, err := c.fab.Poll(pollCtx, handle)

			outMu.Lock()
			outcomes = append(outcomes, pollOutcome{step: name, report: report, err: err})
			outMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// applyOutcomes применяет отчёты фабрики к статусам шагов.
// Вызывается под c.mu.
func (c *Controller) applyOutcomes(outcomes []pollOutcome) {
	for _, o := range outcomes {
		step := c.steps[o.step]
		if step.Status.IsTerminal() {
			continue
		}

		if o.err != nil {
			c.pollFailures[o.step]++
			failures := c.pollFailures[o.step]

			if failures >= c.maxPollFailures {
				c.failStep(step, "lost contact with execution fabric: "+o.err.Error())
				continue
			}

			shift := failures
			if shift > maxPollBackoffShift {
				shift = maxPollBackoffShift
			}
			c.nextPoll[o.step] = time.Now().Add(c.pollInterval << shift)

			c.logger.Warn("poll failed",
				"step", o.step,
				"failures", failures,
				"error", o.err,
			)
			continue
		}

		delete(c.pollFailures, o.step)
		delete(c.nextPoll, o.step)

		switch o.report.Status {
		case fabric.StatusRunning:
			if step.Status == domain.StepStatusDispatched {
				step.MarkRunning()
				c.logger.Info("step running", "step", o.step)
			}

		case fabric.StatusCompleted:
			step.MarkCompleted()
			c.results.Complete(o.step, c.instances[o.step].ID.String(), o.report.Outputs)
			c.stepFinished(step)
			c.logger.Info("step completed", "step", o.step)

		case fabric.StatusFailed:
			msg := o.report.Error
			if msg == "" {
				msg = "execution failed"
			}
			c.failStep(step, msg)

		case fabric.StatusCancelled:
			c.failStep(step, "execution cancelled")
		}
	}
}

// propagateSkips переводит в SKIPPED всех нестартовавших потомков
// упавших шагов. Вызывается под c.mu.
//
// Затрагиваются только PENDING/READY потомки: уже запущенные instances
// продолжают выполняться (остановить их может только Stop).
func (c *Controller) propagateSkips() {
	for _, name := range c.graph.Names() {
		if c.steps[name].Status != domain.StepStatusFailed {
			continue
		}

		for _, desc := range c.graph.Descendants(name) {
			child := c.steps[desc]
			switch child.Status {
			case domain.StepStatusPending, domain.StepStatusReady:
				child.MarkSkipped()
				c.stepFinished(child)
				c.logger.Info("step skipped",
					"step", desc,
					"failed_ancestor", name,
				)
			}
		}
	}
}

// dispatchReady инстанцирует и отправляет на фабрику все готовые шаги.
// Вызывается под c.mu.
//
// Готовность определяет граф: PENDING шаг, у которого все родители
// COMPLETED. Overrides резолвятся здесь — лениво, по фактическим
// результатам родителей, — поэтому ErrReferenceNotReady на этом пути
// означает ошибку планировщика, а не гонку.
func (c *Controller) dispatchReady(ctx context.Context) {
	statuses := make(map[string]domain.StepStatus, len(c.steps))
	for name, step := range c.steps {
		statuses[name] = step.Status
	}

	for _, name := range c.graph.Ready(statuses) {
		step := c.steps[name]
		step.MarkReady()

		inst, err := engine.Instantiate(step, c.templates[name], c.id, c.results, c.tags)
		if err != nil {
			c.failStep(step, "instantiate: "+err.Error())
			continue
		}

		queue := step.Queue
		if queue == "" {
			queue = c.defaultQueue
		}

		handle, err := c.fab.Submit(ctx, inst, queue)
		if err != nil {
			c.dispatchFailures[name]++
			if c.dispatchFailures[name] >= maxDispatchFailures {
				c.failStep(step, "submit to fabric: "+err.Error())
				continue
			}

			// Возврат в PENDING: шаг снова попадёт в Ready на следующем тике
			step.Status = domain.StepStatusPending
			c.logger.Warn("submit failed, will retry",
				"step", name,
				"attempt", c.dispatchFailures[name],
				"error", err,
			)
			continue
		}

		delete(c.dispatchFailures, name)
		c.instances[name] = inst
		c.handles[name] = handle
		step.MarkDispatched()

		if c.metrics != nil {
			c.metrics.StepsDispatched.Inc()
			c.metrics.StepsInFlight.Inc()
		}

		c.logger.Info("step dispatched",
			"step", name,
			"instance_id", inst.ID,
			"queue", queue,
			"handle", string(handle),
		)
	}
}

// failStep переводит шаг в FAILED и обновляет метрики.
// Вызывается под c.mu.
func (c *Controller) failStep(step *domain.Step, msg string) {
	wasInFlight := step.Status.InFlight()
	step.MarkFailed(msg)

	if c.metrics != nil {
		if wasInFlight {
			c.metrics.StepsInFlight.Dec()
		}
		c.metrics.StepsFinished.WithLabelValues(string(domain.StepStatusFailed)).Inc()
	}

	telemetry.WithStep(c.logger, step.Name).Error("step failed", "error", msg)
}

// stepFinished обновляет метрики терминального шага (кроме FAILED,
// который проходит через failStep). Вызывается под c.mu.
func (c *Controller) stepFinished(step *domain.Step) {
	if c.metrics == nil {
		return
	}

	if step.Status == domain.StepStatusCompleted {
		c.metrics.StepsInFlight.Dec()
	}
	c.metrics.StepsFinished.WithLabelValues(string(step.Status)).Inc()
}

// checkTerminal проверяет, все ли шаги терминальны, и фиксирует итоговый
// статус pipeline. Вызывается под c.mu.
func (c *Controller) checkTerminal() bool {
	allCompleted := true
	for _, step := range c.steps {
		if !step.Status.IsTerminal() {
			return false
		}
		if step.Status != domain.StepStatusCompleted {
			allCompleted = false
		}
	}

	if allCompleted {
		c.status = domain.PipelineStatusCompleted
	} else {
		c.status = domain.PipelineStatusFailed
	}

	c.logger.Info("pipeline finished", "status", c.status)
	return true
}
