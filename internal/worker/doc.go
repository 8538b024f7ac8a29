// Package worker реализует воркер фабрики выполнения.
//
// Worker — stateless компонент системы, который:
//   - Потребляет instances из именованных очередей выполнения
//   - Выполняет instance через зарегистрированный Executor
//   - Обрабатывает запросы отмены из fanout-обменника
//   - Публикует результат в очередь результатов
//
// Воркеры масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди.
package worker
