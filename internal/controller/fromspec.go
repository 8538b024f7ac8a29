package controller

import (
	"context"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// FromSpec строит Controller из сериализованного определения pipeline.
//
// Шаблоны из spec.Templates публикуются в реестр перед добавлением шагов.
// Поля идентичности и очередь по умолчанию из конфигурации имеют приоритет
// над значениями spec, что позволяет CLI переопределять их флагами.
func FromSpec(ctx context.Context, cfg Config, spec *domain.PipelineSpec) (*Controller, error) {
	if err := engine.Validate(spec); err != nil {
		return nil, err
	}

	if cfg.Project == "" {
		cfg.Project = spec.Project
	}
	if cfg.Name == "" {
		cfg.Name = spec.Name
	}
	if cfg.Version == "" {
		cfg.Version = spec.Version
	}
	if cfg.DefaultQueue == "" {
		cfg.DefaultQueue = spec.DefaultQueue
	}
	if len(cfg.Tags) == 0 {
		cfg.Tags = spec.Tags
	}

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}

	for i := range spec.Templates {
		if err := c.registry.Publish(ctx, &spec.Templates[i]); err != nil {
			return nil, fmt.Errorf("publish template %s: %w", spec.Templates[i].Name, err)
		}
	}

	for _, step := range spec.Steps {
		if err := c.AddStep(ctx, step); err != nil {
			return nil, err
		}
	}

	return c, nil
}
