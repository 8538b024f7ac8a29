package controller

import "errors"

// Ошибки контроллера.
var (
	// ErrPipelineStarted — операция недопустима после Start.
	ErrPipelineStarted = errors.New("pipeline already started")

	// ErrPipelineNotStarted — операция требует запущенного pipeline.
	ErrPipelineNotStarted = errors.New("pipeline not started")

	// ErrVersionConflict — структура определения изменилась под той же
	// версией при выключенном auto version bump.
	ErrVersionConflict = errors.New("pipeline structure changed under the same version")
)
