package worker

import (
	"context"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Параметры instance, которые интерпретирует сам воркер.
const (
	// ParamExecutor — имя executor'а (секция General). По умолчанию command.
	ParamExecutor = "executor"

	// ParamEntryPoint — команда запуска (секция General).
	ParamEntryPoint = "entry_point"
)

// DefaultExecutor — executor, используемый при отсутствии General/executor.
const DefaultExecutor = "command"

// Executor — интерфейс выполнения одного instance.
//
// inst.Parameters содержит полностью отрендеренную конфигурацию:
// все reference-выражения резолвлены контроллером до dispatch.
type Executor interface {
	Execute(ctx context.Context, inst *domain.Instance) (*ExecutionResult, error)
}

// ExecutionResult — результат выполнения instance.
type ExecutionResult struct {
	// Outputs — выходные значения, доступные потомкам через ${step.field}.
	Outputs map[string]string

	// Error — сообщение об ошибке (логическая ошибка выполнения).
	// Инфраструктурные ошибки возвращаются через error в Execute().
	Error string
}

// Registry — реестр executor'ов по имени.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry создаёт реестр с executor'ами по умолчанию.
//
// Регистрирует: command.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[string]Executor)}
	r.Register(DefaultExecutor, &CommandExecutor{})
	return r
}

// Register добавляет executor под именем.
func (r *Registry) Register(name string, executor Executor) {
	r.executors[name] = executor
}

// Get возвращает executor по имени.
func (r *Registry) Get(name string) (Executor, error) {
	executor, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExecutor, name)
	}
	return executor, nil
}

// ForInstance выбирает executor по параметру General/executor instance.
func (r *Registry) ForInstance(inst *domain.Instance) (Executor, error) {
	name, ok := inst.Parameters.Get(domain.DefaultSection, ParamExecutor)
	if !ok || name == "" {
		name = DefaultExecutor
	}
	return r.Get(name)
}
