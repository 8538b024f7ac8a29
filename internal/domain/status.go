package domain

// StepStatus — статус выполнения шага pipeline.
//
// Жизненный цикл:
//
//	PENDING → READY → DISPATCHED → RUNNING → COMPLETED
//	                                       ↘ FAILED
//	PENDING → SKIPPED (при падении любого из родителей)
type StepStatus string

const (
	// StepStatusPending — шаг создан, зависимости ещё не выполнены.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusReady — все родители завершены, шаг готов к dispatch.
	StepStatusReady StepStatus = "READY"

	// StepStatusDispatched — instance отправлен в очередь выполнения.
	StepStatusDispatched StepStatus = "DISPATCHED"

	// StepStatusRunning — удалённая фабрика сообщила о начале выполнения.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusCompleted — шаг успешно завершён, outputs доступны потомкам.
	StepStatusCompleted StepStatus = "COMPLETED"

	// StepStatusFailed — шаг завершился с ошибкой.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusSkipped — шаг пропущен из-за падения родителя.
	StepStatusSkipped StepStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный (переходов больше не будет).
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}

// InFlight возвращает true, если instance шага находится на удалённой фабрике.
func (s StepStatus) InFlight() bool {
	return s == StepStatusDispatched || s == StepStatusRunning
}

// PipelineStatus — статус выполнения pipeline в целом.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          (или) → STOPPED (по запросу пользователя)
type PipelineStatus string

const (
	// PipelineStatusPending — pipeline построен, но ещё не запущен.
	PipelineStatusPending PipelineStatus = "PENDING"

	// PipelineStatusRunning — event loop выполняется.
	PipelineStatusRunning PipelineStatus = "RUNNING"

	// PipelineStatusCompleted — все шаги завершились успешно.
	PipelineStatusCompleted PipelineStatus = "COMPLETED"

	// PipelineStatusFailed — хотя бы один шаг FAILED.
	PipelineStatusFailed PipelineStatus = "FAILED"

	// PipelineStatusStopped — выполнение остановлено через Stop().
	PipelineStatusStopped PipelineStatus = "STOPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PipelineStatus) IsTerminal() bool {
	switch s {
	case PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusStopped:
		return true
	default:
		return false
	}
}
