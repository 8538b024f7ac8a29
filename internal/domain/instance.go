package domain

import (
	"time"

	"github.com/google/uuid"
)

// Instance — исполняемый клон шага.
//
// Создаётся один раз, в момент когда все родители шага COMPLETED и его
// overrides резолвятся. После создания неизменяем: Parameters — полностью
// самодостаточный снимок без ссылок на шаблон, поэтому instance
// воспроизводим независимо от реестра.
type Instance struct {
	// ID — уникальный идентификатор instance.
	// Именно на него ссылается выражение ${step.id}.
	ID uuid.UUID `json:"id"`

	// StepName — имя шага, породившего instance.
	StepName string `json:"step_name"`

	// PipelineID — идентификатор запуска pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Parameters — полностью резолвленная конфигурация.
	Parameters Configuration `json:"parameters"`

	// Tags — метки, передаваемые фабрике вместе с instance.
	// Заполняются при AddPipelineTags=true.
	Tags []string `json:"tags,omitempty"`

	// CreatedAt — время создания instance.
	CreatedAt time.Time `json:"created_at"`
}
