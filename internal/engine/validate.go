package engine

import (
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Validate выполняет структурную валидацию PipelineSpec.
//
// Проверяет:
//   - Наличие шагов
//   - Непустые имена и уникальность имён
//   - Валидность родителей (ссылки на объявленные ранее шаги)
//   - Отсутствие циклов (делегируется Graph)
//
// Наличие очередей проверяется контроллером при Start: default_queue
// может быть задана позже, через SetDefaultExecutionQueue.
func Validate(spec *domain.PipelineSpec) error {
	if spec == nil || len(spec.Steps) == 0 {
		return ErrEmptySteps
	}

	// Граф повторяет те же инкрементальные проверки, что и AddStep,
	// поэтому валидация файла и валидация программного API совпадают.
	graph := NewGraph()

	for i := range spec.Steps {
		step := &spec.Steps[i]

		if step.Template.Name == "" {
			return NewDefinitionError(step.Name, "template",
				fmt.Sprintf("step %s has no template reference", step.Name), ErrTemplateNotFound)
		}

		if err := graph.AddNode(step.Name, step.Parents); err != nil {
			return err
		}
	}

	return nil
}
