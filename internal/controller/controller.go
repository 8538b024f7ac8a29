package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/fabric"
	"github.com/shaiso/Conveyor/internal/registry"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval    = 5 * time.Second
	defaultPollTimeout     = 10 * time.Second
	defaultMaxPollFailures = 5
	defaultVersion         = "1.0"
)

// Controller управляет выполнением одного pipeline.
//
// Жизненный цикл: AddStep* → Start/StartLocally → Wait → Stop.
// Всей изменяемой структурой (граф, статусы, instances, handles) владеет
// единственная горутина event loop; внешние читатели получают снимки
// через Snapshot/Status под RWMutex.
type Controller struct {
	id uuid.UUID

	// Identity
	project string
	name    string
	version string

	// Behavior
	disableBump  bool
	addTags      bool
	tags         []string
	defaultQueue string

	// Collaborators
	registry registry.Registry
	fab      fabric.Fabric
	defs     DefinitionStore
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// Polling configuration
	pollInterval    time.Duration
	pollTimeout     time.Duration
	maxPollFailures int

	// Mutable pipeline state (event loop — единственный писатель после Start)
	mu        sync.RWMutex
	steps     map[string]*domain.Step
	graph     *engine.Graph
	templates map[string]*domain.Template
	results   *engine.ResultSet
	instances map[string]*domain.Instance
	handles   map[string]fabric.Handle
	status    domain.PipelineStatus
	started   bool

	// Per-handle poll backoff и счётчик неудачных submit
	pollFailures     map[string]int
	nextPoll         map[string]time.Time
	dispatchFailures map[string]int

	// Lifecycle
	done     chan struct{}
	doneOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Config — конфигурация Controller.
type Config struct {
	// Identity
	Project string
	Name    string

	// Version — версия определения. Пустая строка — версия выводится из
	// хранилища определений (auto version bump) либо берётся по умолчанию.
	Version string

	// DisableAutoVersionBump выключает автоинкремент версии: структурное
	// изменение под той же версией становится ErrVersionConflict.
	DisableAutoVersionBump bool

	// AddPipelineTags добавляет к каждому instance метку
	// "pipeline:<name>/<version>" и теги из Tags.
	AddPipelineTags bool

	// Tags — дополнительные метки pipeline.
	Tags []string

	// DefaultQueue — очередь выполнения по умолчанию.
	// Может быть задана позже через SetDefaultExecutionQueue или Start.
	DefaultQueue string

	// Collaborators
	Registry    registry.Registry // реестр шаблонов (обязательно)
	Fabric      fabric.Fabric     // фабрика выполнения (обязательно)
	Definitions DefinitionStore   // хранилище определений (опционально)

	// Polling configuration
	PollInterval    time.Duration // интервал тика event loop (default: 5s)
	PollTimeout     time.Duration // ограничение на один poll handle (default: 10s)
	MaxPollFailures int           // подряд неудачных poll до FAILED шага (default: 5)

	// Telemetry
	Metrics *telemetry.Metrics // опционально
	Logger  *slog.Logger
}

// New создаёт новый Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("controller: registry is required")
	}
	if cfg.Fabric == nil {
		return nil, fmt.Errorf("controller: fabric is required")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	maxPollFailures := cfg.MaxPollFailures
	if maxPollFailures <= 0 {
		maxPollFailures = defaultMaxPollFailures
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()

	return &Controller{
		id:               id,
		project:          cfg.Project,
		name:             cfg.Name,
		version:          cfg.Version,
		disableBump:      cfg.DisableAutoVersionBump,
		addTags:          cfg.AddPipelineTags,
		tags:             append([]string(nil), cfg.Tags...),
		defaultQueue:     cfg.DefaultQueue,
		registry:         cfg.Registry,
		fab:              cfg.Fabric,
		defs:             cfg.Definitions,
		metrics:          cfg.Metrics,
		logger:           telemetry.WithPipelineID(logger, id.String()),
		pollInterval:     pollInterval,
		pollTimeout:      pollTimeout,
		maxPollFailures:  maxPollFailures,
		steps:            make(map[string]*domain.Step),
		graph:            engine.NewGraph(),
		templates:        make(map[string]*domain.Template),
		results:          engine.NewResultSet(),
		instances:        make(map[string]*domain.Instance),
		handles:          make(map[string]fabric.Handle),
		status:           domain.PipelineStatusPending,
		pollFailures:     make(map[string]int),
		nextPoll:         make(map[string]time.Time),
		dispatchFailures: make(map[string]int),
		done:             make(chan struct{}),
	}, nil
}

// ID возвращает идентификатор запуска pipeline.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// Version возвращает резолвленную версию определения.
// До Start возвращает версию из конфигурации (возможно пустую).
func (c *Controller) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// AddStep добавляет шаг в pipeline.
//
// Шаблон резолвится в снимок немедленно (pipeline-build time): изменения
// реестра после AddStep на этот шаг не влияют.
//
// Ошибки определения (duplicate/unknown parent/cycle/пустое имя) возвращаются
// синхронно, граф при этом не меняется. После Start AddStep запрещён.
func (c *Controller) AddStep(ctx context.Context, spec domain.StepSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrPipelineStarted
	}

	// Снимок шаблона берём до мутации графа, чтобы ошибка реестра
	// не оставила граф с узлом без шаблона.
	tmpl, err := c.registry.Lookup(ctx, spec.Template)
	if err != nil {
		return fmt.Errorf("lookup template %s: %w", spec.Template, err)
	}

	if err := c.graph.AddNode(spec.Name, spec.Parents); err != nil {
		return err
	}

	c.steps[spec.Name] = &domain.Step{
		Name:      spec.Name,
		Template:  spec.Template,
		Overrides: append([]domain.Override(nil), spec.Overrides...),
		Parents:   append([]string(nil), spec.Parents...),
		Queue:     spec.Queue,
		Status:    domain.StepStatusPending,
	}
	c.templates[spec.Name] = tmpl
	c.results.Register(spec.Name)

	c.logger.Debug("step added",
		"step", spec.Name,
		"template", spec.Template.String(),
		"parents", spec.Parents,
	)

	return nil
}

// SetDefaultExecutionQueue задаёт очередь выполнения по умолчанию.
func (c *Controller) SetDefaultExecutionQueue(queue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultQueue = queue
}

// Start запускает event loop фоновой горутиной.
//
// queue используется как очередь по умолчанию, если она не была задана
// раньше. Wait блокируется до терминального статуса pipeline.
func (c *Controller) Start(ctx context.Context, queue string) error {
	loopCtx, err := c.begin(ctx, queue)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(loopCtx)
	}()

	return nil
}

// StartLocally выполняет event loop синхронно в горутине вызывающего.
// Возвращается, когда pipeline достиг терминального статуса.
func (c *Controller) StartLocally(ctx context.Context, queue string) error {
	loopCtx, err := c.begin(ctx, queue)
	if err != nil {
		return err
	}

	c.run(loopCtx)
	return nil
}

// begin выполняет общую подготовку Start/StartLocally:
// проверки определения, резолвинг версии, переход в RUNNING.
func (c *Controller) begin(ctx context.Context, queue string) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil, ErrPipelineStarted
	}
	if len(c.steps) == 0 {
		return nil, engine.ErrEmptySteps
	}

	if c.defaultQueue == "" {
		c.defaultQueue = queue
	}

	// NoQueue — ошибка построения: всплывает здесь, синхронно,
	// а не при dispatch конкретного шага.
	for _, name := range c.graph.Names() {
		if c.steps[name].Queue == "" && c.defaultQueue == "" {
			return nil, engine.NewDefinitionError(name, "queue",
				fmt.Sprintf("step %s has no queue and no default queue is set", name),
				engine.ErrNoQueue)
		}
	}

	if err := c.resolveVersion(ctx); err != nil {
		return nil, err
	}

	if c.addTags {
		c.tags = append(c.tags, fmt.Sprintf("pipeline:%s/%s", c.name, c.version))
	}

	c.status = domain.PipelineStatusRunning
	c.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.logger.Info("pipeline started",
		"project", c.project,
		"name", c.name,
		"version", c.version,
		"steps", c.graph.Size(),
		"default_queue", c.defaultQueue,
	)

	return loopCtx, nil
}

// resolveVersion резолвит версию определения через DefinitionStore.
//
// Без хранилища версия берётся из конфигурации (или значение по умолчанию).
// С хранилищем: совпадающий структурный хэш переиспользует последнюю версию;
// изменённая структура даёт bump (или ErrVersionConflict при выключенном
// auto version bump и той же явной версии).
func (c *Controller) resolveVersion(ctx context.Context) error {
	hash := c.structureHash()

	if c.defs == nil {
		if c.version == "" {
			c.version = defaultVersion
		}
		return nil
	}

	latest, err := c.defs.Latest(ctx, c.project, c.name)
	if err != nil {
		return fmt.Errorf("load latest definition: %w", err)
	}

	save := true
	switch {
	case latest == nil:
		if c.version == "" {
			c.version = defaultVersion
		}

	case latest.Hash == hash:
		// Та же структура: переиспользуем версию, ничего не сохраняем
		if c.version == "" || c.version == latest.Version {
			c.version = latest.Version
			save = false
		}

	case c.version != "" && c.version != latest.Version:
		// Пользователь явно задал новую версию — уважаем её

	case c.disableBump:
		return fmt.Errorf("%w: %s/%s version %s", ErrVersionConflict,
			c.project, c.name, latest.Version)

	default:
		c.version = domain.BumpVersion(latest.Version)
	}

	if !save {
		return nil
	}

	def := &Definition{
		Project:   c.project,
		Name:      c.name,
		Version:   c.version,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if err := c.defs.Save(ctx, def); err != nil {
		return fmt.Errorf("save definition: %w", err)
	}
	return nil
}

// structureHash вычисляет структурный хэш текущего набора шагов.
func (c *Controller) structureHash() string {
	names := c.graph.Names()
	shapes := make([]stepShape, 0, len(names))

	for _, name := range names {
		step := c.steps[name]
		shapes = append(shapes, stepShape{
			Name:      step.Name,
			Template:  step.Template,
			Overrides: step.Overrides,
			Parents:   step.Parents,
		})
	}

	return StructureHash(shapes)
}

// Wait блокирует вызывающего до терминального статуса pipeline либо
// истечения таймаута. timeout <= 0 — без таймаута.
//
// Возвращает true, только если все шаги COMPLETED; false — при таймауте
// либо терминальном FAILED/STOPPED.
func (c *Controller) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-c.done
		return c.Status() == domain.PipelineStatusCompleted
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return c.Status() == domain.PipelineStatusCompleted
	case <-timer.C:
		return false
	}
}

// Stop останавливает выполнение и освобождает удалённые ресурсы.
//
// Кооперативная отмена: новые dispatches прекращаются, для всех
// нетерминальных instances вызывается Cancel фабрики (best-effort —
// мгновенная остановка на удалённой стороне не гарантируется).
// Повторные вызовы безопасны.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("stopping pipeline")

		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()

		c.cancelInFlight()
		c.finalize()

		c.logger.Info("pipeline stopped", "status", c.Status())
	})
}

// cancelInFlight запрашивает отмену всех нетерминальных instances.
func (c *Controller) cancelInFlight() {
	c.mu.RLock()
	pending := make(map[string]fabric.Handle)
	for name, handle := range c.handles {
		if !c.steps[name].Status.IsTerminal() {
			pending[name] = handle
		}
	}
	c.mu.RUnlock()

	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for name, handle := range pending {
		if err := c.fab.Cancel(ctx, handle); err != nil {
			c.logger.Warn("failed to cancel instance",
				"step", name,
				"error", err,
			)
		}
	}
}

// finalize фиксирует терминальный статус pipeline и будит Wait.
func (c *Controller) finalize() {
	c.mu.Lock()
	if !c.status.IsTerminal() {
		if c.started {
			c.status = domain.PipelineStatusStopped
		}
	}
	status := c.status
	c.mu.Unlock()

	if c.metrics != nil && status.IsTerminal() {
		c.metrics.PipelineRuns.WithLabelValues(string(status)).Inc()
	}

	c.doneOnce.Do(func() { close(c.done) })
}

// Status возвращает текущий статус pipeline.
func (c *Controller) Status() domain.PipelineStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Snapshot — снимок состояния pipeline для внешних читателей.
type Snapshot struct {
	// PipelineID — идентификатор запуска.
	PipelineID uuid.UUID

	// Status — статус pipeline.
	Status domain.PipelineStatus

	// Version — резолвленная версия определения.
	Version string

	// Steps — статусы шагов по именам.
	Steps map[string]domain.StepStatus

	// Errors — тексты ошибок упавших шагов.
	Errors map[string]string
}

// Snapshot возвращает копию статусов: внешние читатели никогда не видят
// живую структуру, которой владеет event loop.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		PipelineID: c.id,
		Status:     c.status,
		Version:    c.version,
		Steps:      make(map[string]domain.StepStatus, len(c.steps)),
		Errors:     make(map[string]string),
	}
	for name, step := range c.steps {
		snap.Steps[name] = step.Status
		if step.Error != "" {
			snap.Errors[name] = step.Error
		}
	}
	return snap
}

// InstanceID возвращает идентификатор instance шага, если шаг был
// инстанцирован.
func (c *Controller) InstanceID(step string) (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inst, ok := c.instances[step]
	if !ok {
		return uuid.Nil, false
	}
	return inst.ID, true
}
