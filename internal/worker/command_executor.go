package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shaiso/Conveyor/internal/domain"
)

// CommandExecutor выполняет instance как shell-команду.
//
// Команда берётся из параметра General/entry_point. Вся конфигурация
// instance экспортируется в окружение процесса переменными вида
// CONVEYOR_<SECTION>_<KEY>. Строки stdout вида key=value собираются
// в outputs instance.
type CommandExecutor struct {
	// Shell — интерпретатор команды. По умолчанию /bin/sh.
	Shell string
}

// Execute запускает entry_point instance.
func (e *CommandExecutor) Execute(ctx context.Context, inst *domain.Instance) (*ExecutionResult, error) {
	entryPoint, ok := inst.Parameters.Get(domain.DefaultSection, ParamEntryPoint)
	if !ok || entryPoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntryPoint, inst.StepName)
	}

	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", entryPoint)
	cmd.Env = append(os.Environ(), environ(inst.Parameters)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &ExecutionResult{
		Outputs: parseOutputs(stdout.Bytes()),
	}

	if runErr != nil {
		if ctx.Err() != nil {
			// Отмена или таймаут — инфраструктурный исход
			return nil, ctx.Err()
		}

		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		result.Error = msg
	}

	return result, nil
}

// environ превращает конфигурацию instance в переменные окружения.
func environ(params domain.Configuration) []string {
	env := make([]string, 0, 8)
	for section, kv := range params {
		for key, value := range kv {
			env = append(env, fmt.Sprintf("%s=%s", envName(section, key), value))
		}
	}
	return env
}

// envName строит имя переменной окружения для пары секция/ключ.
func envName(section, key string) string {
	name := fmt.Sprintf("CONVEYOR_%s_%s", section, key)
	name = strings.ToUpper(name)

	var sb strings.Builder
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// parseOutputs собирает outputs из строк stdout вида key=value.
// Строки без знака равенства игнорируются (обычный лог процесса).
func parseOutputs(stdout []byte) map[string]string {
	outputs := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		outputs[key] = value
	}

	return outputs
}
