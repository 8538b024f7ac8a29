// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//   - fabric.go     — реализация fabric.Fabric поверх очередей
//
// Типы сообщений:
//   - instance.submit    — instance отправлен в очередь выполнения
//   - instance.completed — воркер завершил выполнение instance
//   - instance.cancel    — запрос отмены выполнения
//
// Exchanges:
//   - conveyor.tasks   — очереди выполнения (routing key = имя очереди)
//   - conveyor.results — события завершения instances
//   - conveyor.control — fanout для запросов отмены
//   - conveyor.dlq     — dead letter queue
package mq
