package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/telemetry"
	"github.com/shaiso/Conveyor/internal/worker"
)

// NewWorkerCmd создаёт команду запуска воркера на очередях выполнения.
func NewWorkerCmd() *cobra.Command {
	var (
		queues   []string
		amqpURL  string
		prefetch int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a worker consuming execution queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.SetupLogger()
			ctx := cmd.Context()

			conn, err := mq.NewConnection(resolveAMQPURL(amqpURL), logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				return err
			}

			w := worker.New(worker.Config{
				Conn:     conn,
				Queues:   queues,
				Prefetch: prefetch,
				Logger:   logger,
			})

			if err := w.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			w.Stop()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&queues, "queue", nil, "Execution queue to consume (repeatable)")
	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default: $AMQP_URL or local broker)")
	cmd.Flags().IntVar(&prefetch, "prefetch", 0, "Messages prefetched per queue")
	cmd.MarkFlagRequired("queue")

	return cmd
}
