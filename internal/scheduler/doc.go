// Package scheduler реализует периодический запуск pipelines по cron.
//
// Scheduler хранит именованные записи (cron-выражение + определение
// pipeline) и на каждое срабатывание вызывает LaunchFunc. Повторное
// срабатывание при ещё идущем запуске той же записи пропускается.
//
// Использование:
//
//	sched := scheduler.New(launch, logger)
//	if err := sched.Add("nightly", "0 3 * * *", spec); err != nil { ... }
//	sched.Start(ctx)
//	defer sched.Stop()
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно: при нескольких
// экземплярах сервиса запускать его должен только лидер.
package scheduler
