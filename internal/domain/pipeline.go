package domain

import (
	"encoding/json"
	"fmt"
)

// PipelineSpec — сериализуемое определение pipeline.
//
// Это формат, который принимают CLI и service-бинарник: проект, имя,
// версия, шаблоны и список шагов. Контроллер строится из spec вызовами
// AddStep в порядке объявления.
type PipelineSpec struct {
	// Project — проект pipeline.
	Project string `json:"project"`

	// Name — имя pipeline (уникально в рамках проекта).
	Name string `json:"name"`

	// Version — версия определения. Пустая строка — версия будет выведена
	// автоматически (см. BumpVersion и auto version bump контроллера).
	Version string `json:"version,omitempty"`

	// DefaultQueue — очередь выполнения по умолчанию для всех шагов.
	DefaultQueue string `json:"default_queue,omitempty"`

	// Tags — метки pipeline, добавляемые к instances при AddPipelineTags.
	Tags []string `json:"tags,omitempty"`

	// Templates — шаблоны, публикуемые в реестр перед запуском.
	// Необязательно: шаблоны могут уже существовать в реестре.
	Templates []Template `json:"templates,omitempty"`

	// Steps — шаги pipeline в порядке объявления.
	Steps []StepSpec `json:"steps"`
}

// StepSpec — определение одного шага в PipelineSpec.
type StepSpec struct {
	// Name — имя шага.
	Name string `json:"name"`

	// Template — адрес базового шаблона.
	Template TemplateRef `json:"template"`

	// Overrides — параметры поверх шаблона, в порядке объявления.
	Overrides []Override `json:"overrides,omitempty"`

	// Parents — имена родительских шагов.
	Parents []string `json:"parents,omitempty"`

	// Queue — очередь выполнения этого шага (переопределяет default_queue).
	Queue string `json:"queue,omitempty"`
}

// ParsePipelineSpec разбирает JSON-определение pipeline.
func ParsePipelineSpec(data []byte) (*PipelineSpec, error) {
	var spec PipelineSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse pipeline spec: %w", err)
	}
	return &spec, nil
}
