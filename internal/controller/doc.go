// Package controller реализует контроллер pipeline.
//
// Controller отвечает за:
//   - Построение графа зависимостей из вызовов AddStep
//   - Резолвинг версии определения (auto version bump по структурному хэшу)
//   - Event loop: poll handles фабрики, продвижение статусов шагов
//   - Ленивый резолвинг overrides и dispatch готовых шагов
//   - Каскадный SKIPPED для потомков упавших шагов
//   - Финализацию pipeline (COMPLETED/FAILED/STOPPED)
//
// Всё изменяемое состояние (граф, статусы, instances) принадлежит одному
// значению Controller: ни одного process-wide синглтона, несколько
// независимых pipelines спокойно живут в одном процессе.
package controller
