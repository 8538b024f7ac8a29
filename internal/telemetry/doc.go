// Package telemetry содержит настройку structured logging (slog)
// и метрики Prometheus для компонентов Conveyor.
package telemetry
