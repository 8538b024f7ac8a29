// Conveyor Controller — запускает pipelines по определению.
//
// Controller:
//   - Загружает определение pipeline из файла
//   - Строит DAG шагов и резолвит версию определения
//   - Отправляет instances в очереди выполнения через RabbitMQ
//   - Отслеживает прогресс и финализирует pipeline
//
// С переменной CRON_SCHEDULE контроллер запускает pipeline периодически,
// без неё — выполняет один проход и завершается.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/controller"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/registry"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/scheduler"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-controller")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	specPath := os.Getenv("PIPELINE_SPEC")
	if specPath == "" {
		logger.Error("PIPELINE_SPEC is not set")
		os.Exit(1)
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		logger.Error("failed to read pipeline spec", "path", specPath, "error", err)
		os.Exit(1)
	}

	spec, err := domain.ParsePipelineSpec(data)
	if err != nil {
		logger.Error("failed to parse pipeline spec", "error", err)
		os.Exit(1)
	}

	// Базовая конфигурация контроллера (Registry/Definitions/Fabric ниже)
	cfg := controller.Config{
		DefaultQueue: os.Getenv("DEFAULT_QUEUE"),
		Metrics:      telemetry.NewMetrics(nil),
		Logger:       logger,
	}

	// DB pool — опционально: без БД реестр и определения живут в памяти
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("database connected")

		cfg.Registry = repo.NewTemplateRepo(pool)
		cfg.Definitions = repo.NewPipelineRepo(pool)
	} else {
		logger.Warn("DB_URL not set, using in-memory registry and definitions")
		cfg.Registry = registry.NewMemory()
		cfg.Definitions = controller.NewMemoryDefinitions()
	}

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	// Создаём топологию
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	fab := mq.NewFabric(mqConn, logger)
	go func() {
		if err := fab.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("result consumer error", "error", err)
		}
	}()
	cfg.Fabric = fab

	// launch выполняет один проход pipeline.
	launch := func(ctx context.Context, spec *domain.PipelineSpec) error {
		ctrl, err := controller.FromSpec(ctx, cfg, spec)
		if err != nil {
			return err
		}

		if err := ctrl.StartLocally(ctx, cfg.DefaultQueue); err != nil {
			return err
		}

		snap := ctrl.Snapshot()
		if snap.Status != domain.PipelineStatusCompleted {
			return fmt.Errorf("pipeline finished with status %s", snap.Status)
		}
		return nil
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("CONTROLLER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	cronExpr := os.Getenv("CRON_SCHEDULE")
	if cronExpr == "" {
		// Разовый запуск
		if err := launch(ctx, spec); err != nil {
			logger.Error("pipeline run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("conveyor-controller finished")
		return
	}

	// Периодический запуск
	sched := scheduler.New(launch, logger)
	if err := sched.Add(spec.Name, cronExpr, spec); err != nil {
		logger.Error("failed to register schedule", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)

	// Ожидаем сигнал завершения
	<-ctx.Done()

	sched.Stop()
	logger.Info("conveyor-controller stopped")
}
