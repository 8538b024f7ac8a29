// Package engine содержит ядро оркестрации pipeline.
//
// Включает:
//   - graph.go       — граф зависимостей с инкрементальной проверкой циклов
//   - resolver.go    — ленивый резолвинг reference-выражений ${step.field}
//   - instantiate.go — клонирование шаблона и применение overrides
//   - validate.go    — валидация PipelineSpec
//
// Engine не знает про очереди, фабрику и персистентность — он отвечает
// только за структуру pipeline и детерминированный резолвинг параметров.
package engine
