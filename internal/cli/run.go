package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conveyor/internal/controller"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/fabric"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/registry"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/telemetry"
	"github.com/shaiso/Conveyor/internal/worker"
)

// NewRunCmd создаёт команду запуска pipeline по файлу определения.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var (
		queue        string
		amqpURL      string
		local        bool
		useDB        bool
		disableBump  bool
		tags         []string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run SPEC_FILE",
		Short: "Run a pipeline from a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := telemetry.SetupLogger()
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spec file: %w", err)
			}

			spec, err := domain.ParsePipelineSpec(data)
			if err != nil {
				return err
			}

			cfg := controller.Config{
				DefaultQueue:           queue,
				DisableAutoVersionBump: disableBump,
				AddPipelineTags:        len(tags) > 0,
				Tags:                   tags,
				PollInterval:           pollInterval,
				Logger:                 logger,
			}

			if useDB {
				pool, err := repo.NewPool(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()

				cfg.Registry = repo.NewTemplateRepo(pool)
				cfg.Definitions = repo.NewPipelineRepo(pool)
			} else {
				cfg.Registry = registry.NewMemory()
				cfg.Definitions = controller.NewMemoryDefinitions()
			}

			if local {
				fab := fabric.NewLocal(localExec(worker.NewRegistry()), logger)
				defer fab.Drain()
				cfg.Fabric = fab
			} else {
				conn, err := mq.NewConnection(resolveAMQPURL(amqpURL), logger)
				if err != nil {
					return err
				}
				defer conn.Close()

				if err := mq.SetupTopology(ctx, conn); err != nil {
					return err
				}

				fab := mq.NewFabric(conn, logger)
				go func() {
					if err := fab.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("result consumer error", "error", err)
					}
				}()
				cfg.Fabric = fab
			}

			ctrl, err := controller.FromSpec(ctx, cfg, spec)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Starting pipeline %s/%s", spec.Project, spec.Name))

			if err := ctrl.StartLocally(ctx, queue); err != nil {
				return err
			}

			snap := ctrl.Snapshot()
			printSnapshot(out, spec, snap)

			if snap.Status != domain.PipelineStatusCompleted {
				return fmt.Errorf("pipeline finished with status %s", snap.Status)
			}

			out.Success(fmt.Sprintf("Pipeline completed, version %s", snap.Version))
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Default execution queue")
	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default: $AMQP_URL or local broker)")
	cmd.Flags().BoolVar(&local, "local", false, "Execute steps in-process instead of dispatching to the broker")
	cmd.Flags().BoolVar(&useDB, "db", false, "Use Postgres-backed template registry and definitions ($DB_URL)")
	cmd.Flags().BoolVar(&disableBump, "disable-version-bump", false, "Fail instead of bumping the version on structure change")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag added to every instance (repeatable)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Status poll interval")

	return cmd
}

// localExec адаптирует реестр executor'ов воркера к локальной фабрике.
func localExec(reg *worker.Registry) fabric.ExecFunc {
	return func(ctx context.Context, inst *domain.Instance) (map[string]string, error) {
		executor, err := reg.ForInstance(inst)
		if err != nil {
			return nil, err
		}

		result, err := executor.Execute(ctx, inst)
		if err != nil {
			return nil, err
		}
		if result.Error != "" {
			return result.Outputs, errors.New(result.Error)
		}
		return result.Outputs, nil
	}
}

// resolveAMQPURL выбирает адрес брокера: флаг, окружение, значение по умолчанию.
func resolveAMQPURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if env := os.Getenv("AMQP_URL"); env != "" {
		return env
	}
	return mq.DefaultURL()
}

// printSnapshot выводит итоговые статусы шагов в порядке объявления.
func printSnapshot(out *Output, spec *domain.PipelineSpec, snap controller.Snapshot) {
	headers := []string{"STEP", "STATUS", "ERROR"}
	rows := make([][]string, 0, len(spec.Steps))
	for _, step := range spec.Steps {
		rows = append(rows, []string{
			step.Name,
			string(snap.Steps[step.Name]),
			snap.Errors[step.Name],
		})
	}
	out.Print(headers, rows, snap)
}
