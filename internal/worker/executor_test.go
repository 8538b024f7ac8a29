package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conveyor/internal/domain"
)

func commandInstance(entryPoint string, extra map[string]string) *domain.Instance {
	params := domain.Configuration{
		"General": {"entry_point": entryPoint},
	}
	for key, value := range extra {
		params.Set("General", key, value)
	}

	return &domain.Instance{
		ID:         uuid.New(),
		StepName:   "step",
		PipelineID: uuid.New(),
		Parameters: params,
	}
}

func TestCommandExecutor_Outputs(t *testing.T) {
	e := &CommandExecutor{}

	inst := commandInstance("echo result=42; echo plain log line; echo model=best", nil)

	result, err := e.Execute(context.Background(), inst)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}

	if result.Outputs["result"] != "42" {
		t.Errorf("expected result=42, got %q", result.Outputs["result"])
	}
	if result.Outputs["model"] != "best" {
		t.Errorf("expected model=best, got %q", result.Outputs["model"])
	}
	if _, ok := result.Outputs["plain log line"]; ok {
		t.Error("lines without key=value must be ignored")
	}
}

func TestCommandExecutor_Environment(t *testing.T) {
	e := &CommandExecutor{}

	inst := commandInstance(`echo dataset=$CONVEYOR_GENERAL_DATASET`, map[string]string{
		"dataset": "imagenet",
	})

	result, err := e.Execute(context.Background(), inst)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Outputs["dataset"] != "imagenet" {
		t.Errorf("parameters must be exported to environment, got %q", result.Outputs["dataset"])
	}
}

func TestCommandExecutor_Failure(t *testing.T) {
	e := &CommandExecutor{}

	inst := commandInstance("echo oops >&2; exit 3", nil)

	result, err := e.Execute(context.Background(), inst)
	if err != nil {
		t.Fatalf("command failure is a logical error, not infrastructure: %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected execution error")
	}
	if result.Error != "oops" {
		t.Errorf("expected stderr text in error, got %q", result.Error)
	}
}

func TestCommandExecutor_MissingEntryPoint(t *testing.T) {
	e := &CommandExecutor{}

	inst := &domain.Instance{
		ID:         uuid.New(),
		StepName:   "step",
		Parameters: domain.Configuration{},
	}

	_, err := e.Execute(context.Background(), inst)
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Fatalf("expected ErrMissingEntryPoint, got %v", err)
	}
}

func TestCommandExecutor_Cancel(t *testing.T) {
	e := &CommandExecutor{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	inst := commandInstance("sleep 10", nil)

	start := time.Now()
	_, err := e.Execute(ctx, inst)
	if err == nil {
		t.Fatal("expected error after context timeout")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancelled command must not run to completion")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("command"); err != nil {
		t.Fatalf("default registry must contain command executor: %v", err)
	}

	if _, err := r.Get("gpu-cluster"); !errors.Is(err, ErrUnknownExecutor) {
		t.Fatalf("expected ErrUnknownExecutor, got %v", err)
	}

	inst := commandInstance("true", nil)
	e, err := r.ForInstance(inst)
	if err != nil {
		t.Fatalf("ForInstance: %v", err)
	}
	if _, ok := e.(*CommandExecutor); !ok {
		t.Fatalf("expected CommandExecutor by default, got %T", e)
	}
}

func TestParseOutputs(t *testing.T) {
	outputs := parseOutputs([]byte("a=1\n\n  b = two \nnoise\n=empty\n"))

	if outputs["a"] != "1" {
		t.Errorf("expected a=1, got %q", outputs["a"])
	}
	if outputs["b"] != "two" {
		t.Errorf("expected trimmed b=two, got %q", outputs["b"])
	}
	if len(outputs) != 2 {
		t.Errorf("expected 2 outputs, got %v", outputs)
	}
}
