package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// NewValidateCmd создаёт команду валидации файла определения pipeline.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SPEC_FILE",
		Short: "Validate a pipeline definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spec file: %w", err)
			}

			spec, err := domain.ParsePipelineSpec(data)
			if err != nil {
				return err
			}

			if err := engine.Validate(spec); err != nil {
				var defErr *engine.DefinitionError
				if errors.As(err, &defErr) {
					out.Error(fmt.Sprintf("step %q, field %q: %s",
						defErr.Step, defErr.Field, defErr.Message))
				}
				return err
			}

			out.Success(fmt.Sprintf("%s/%s: %d steps, definition is valid",
				spec.Project, spec.Name, len(spec.Steps)))
			return nil
		},
	}
}
