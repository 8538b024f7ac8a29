package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// LaunchFunc запускает один проход pipeline по его определению.
// Вызывается в отдельной горутине на каждое срабатывание записи.
type LaunchFunc func(ctx context.Context, spec *domain.PipelineSpec) error

// Scheduler — планировщик периодических запусков pipelines.
type Scheduler struct {
	cron   *cron.Cron
	launch LaunchFunc
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	active  map[string]bool

	baseCtx context.Context
}

// New создаёт новый Scheduler.
func New(launch LaunchFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:    cron.New(cron.WithParser(cronParser)),
		launch:  launch,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		active:  make(map[string]bool),
		baseCtx: context.Background(),
	}
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// Add регистрирует периодический запуск определения pipeline.
//
// Определение валидируется при регистрации: битый spec должен всплыть
// сейчас, а не посреди ночи при первом срабатывании.
func (s *Scheduler) Add(name, cronExpr string, spec *domain.PipelineSpec) error {
	if err := ValidateCronExpr(cronExpr); err != nil {
		return err
	}
	if err := engine.Validate(spec); err != nil {
		return fmt.Errorf("validate pipeline spec: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("schedule already registered: %s", name)
	}

	id, err := s.cron.AddFunc(cronExpr, func() {
		s.fire(name, spec)
	})
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}

	s.entries[name] = id
	s.logger.Info("schedule registered",
		"schedule", name,
		"cron", cronExpr,
		"pipeline", spec.Name,
	)
	return nil
}

// Remove удаляет запись планировщика.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.entries[name]; exists {
		s.cron.Remove(id)
		delete(s.entries, name)
		s.logger.Info("schedule removed", "schedule", name)
	}
}

// fire выполняет одно срабатывание записи.
//
// Предыдущий незавершённый запуск той же записи блокирует новый:
// наслаивание запусков одного определения даёт больше вреда, чем
// пропущенный тик.
func (s *Scheduler) fire(name string, spec *domain.PipelineSpec) {
	s.mu.Lock()
	if s.active[name] {
		s.mu.Unlock()
		s.logger.Warn("previous launch still running, skipping", "schedule", name)
		return
	}
	s.active[name] = true
	ctx := s.baseCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.active, name)
		s.mu.Unlock()
	}()

	s.logger.Info("launching scheduled pipeline",
		"schedule", name,
		"pipeline", spec.Name,
	)

	if err := s.launch(ctx, spec); err != nil {
		s.logger.Error("scheduled launch failed",
			"schedule", name,
			"pipeline", spec.Name,
			"error", err,
		)
		return
	}

	s.logger.Info("scheduled launch finished", "schedule", name)
}

// Start запускает cron. Записи можно добавлять и после старта.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop останавливает cron и дожидается активных запусков.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}
