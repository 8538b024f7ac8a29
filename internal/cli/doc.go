// Package cli реализует инструмент командной строки Conveyor.
//
// # Обзор
//
// CLI работает с файлами определений pipeline напрямую: валидирует их,
// запускает выполнение (локально или через брокер) и поднимает воркеров.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json encoder) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conveyor run spec.json --json | jq .
//
// ## Commands
//
//   - run:      запуск pipeline по файлу определения
//   - validate: структурная валидация файла определения
//   - worker:   запуск воркера на именованных очередях выполнения
//
// Каждая команда создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую outputFn — замыкание для ленивого создания Output после
// парсинга PersistentFlags.
package cli
