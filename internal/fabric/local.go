package fabric

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/Conveyor/internal/domain"
)

// ExecFunc — функция выполнения instance для локальной фабрики.
type ExecFunc func(ctx context.Context, inst *domain.Instance) (map[string]string, error)

// Local — фабрика, выполняющая instances в горутинах текущего процесса.
//
// Используется для StartLocally и отладки без брокера: submit запускает
// ExecFunc в отдельной горутине, poll читает накопленные отчёты.
// Очередь при этом игнорируется — локально всё выполняется одним пулом.
type Local struct {
	exec   ExecFunc
	logger *slog.Logger

	mu      sync.Mutex
	reports map[Handle]*Report
	cancels map[Handle]context.CancelFunc
	wg      sync.WaitGroup
}

// NewLocal создаёт локальную фабрику.
func NewLocal(exec ExecFunc, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		exec:    exec,
		logger:  logger,
		reports: make(map[Handle]*Report),
		cancels: make(map[Handle]context.CancelFunc),
	}
}

// Submit запускает выполнение instance в горутине.
func (l *Local) Submit(ctx context.Context, inst *domain.Instance, queue string) (Handle, error) {
	h := Handle(inst.ID.String())

	execCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	l.mu.Lock()
	l.reports[h] = &Report{Status: StatusRunning}
	l.cancels[h] = cancel
	l.mu.Unlock()

	l.logger.Debug("local submit",
		"instance_id", inst.ID,
		"step", inst.StepName,
		"queue", queue,
	)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		outputs, err := l.exec(execCtx, inst)

		report := &Report{Status: StatusCompleted, Outputs: outputs}
		switch {
		case execCtx.Err() != nil:
			report = &Report{Status: StatusCancelled, Error: execCtx.Err().Error()}
		case err != nil:
			report = &Report{Status: StatusFailed, Error: err.Error()}
		}

		l.mu.Lock()
		l.reports[h] = report
		delete(l.cancels, h)
		l.mu.Unlock()
	}()

	return h, nil
}

// Poll возвращает копию отчёта по handle.
func (l *Local) Poll(ctx context.Context, h Handle) (*Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	report, ok := l.reports[h]
	if !ok {
		return nil, ErrUnknownHandle
	}

	copied := *report
	return &copied, nil
}

// Cancel отменяет выполнение instance, если оно ещё идёт.
func (l *Local) Cancel(ctx context.Context, h Handle) error {
	l.mu.Lock()
	cancel, running := l.cancels[h]
	l.mu.Unlock()

	if running {
		cancel()
	}
	return nil
}

// Drain дожидается завершения всех запущенных горутин.
func (l *Local) Drain() {
	l.wg.Wait()
}
