package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

// Instantiate производит исполняемый instance из шага.
//
// Семантика clone-and-override: базовая конфигурация шаблона копируется
// целиком (instances никогда не разделяют изменяемое состояние), затем
// overrides применяются в порядке объявления. Override всегда побеждает
// значение шаблона; при коллизии путей внутри одного шага побеждает более
// поздний override. Отсутствующий путь вставляется.
//
// Значения overrides проходят через резолвер reference-выражений.
// Ошибка резолвинга прерывает инстанцирование целиком.
func Instantiate(step *domain.Step, tmpl *domain.Template, pipelineID uuid.UUID, results *ResultSet, tags []string) (*domain.Instance, error) {
	params := tmpl.Config.Clone()

	for _, override := range step.Overrides {
		resolved, err := results.Resolve(override.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve override %q: %w", override.Key, err)
		}

		section, key := override.Path()
		params.Set(section, key, resolved)
	}

	return &domain.Instance{
		ID:         uuid.New(),
		StepName:   step.Name,
		PipelineID: pipelineID,
		Parameters: params,
		Tags:       append([]string(nil), tags...),
		CreatedAt:  time.Now(),
	}, nil
}
