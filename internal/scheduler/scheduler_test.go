package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

func validSpec() *domain.PipelineSpec {
	return &domain.PipelineSpec{
		Project: "demo",
		Name:    "nightly",
		Steps: []domain.StepSpec{
			{Name: "P1", Template: domain.TemplateRef{Project: "demo", Name: "prepare"}},
		},
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 3 * * *"); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Fatal("invalid expression accepted")
	}
}

func TestScheduler_Add(t *testing.T) {
	s := New(func(ctx context.Context, spec *domain.PipelineSpec) error {
		return nil
	}, nil)

	if err := s.Add("nightly", "0 3 * * *", validSpec()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Дубликат имени
	if err := s.Add("nightly", "0 4 * * *", validSpec()); err == nil {
		t.Fatal("duplicate schedule name accepted")
	}

	// Битое cron-выражение
	if err := s.Add("other", "nope", validSpec()); err == nil {
		t.Fatal("invalid cron expression accepted")
	}

	// Битое определение pipeline
	if err := s.Add("broken", "0 3 * * *", &domain.PipelineSpec{}); err == nil {
		t.Fatal("invalid pipeline spec accepted")
	}

	s.Remove("nightly")
	if err := s.Add("nightly", "0 3 * * *", validSpec()); err != nil {
		t.Fatalf("Add after Remove: %v", err)
	}
}

func TestScheduler_OverlapGuard(t *testing.T) {
	release := make(chan struct{})
	var launches atomic.Int32

	s := New(func(ctx context.Context, spec *domain.PipelineSpec) error {
		launches.Add(1)
		<-release
		return nil
	}, nil)

	spec := validSpec()

	// Первое срабатывание занимает запись
	go s.fire("nightly", spec)

	deadline := time.After(time.Second)
	for launches.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first launch did not start")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Второе срабатывание при идущем первом пропускается
	s.fire("nightly", spec)
	if got := launches.Load(); got != 1 {
		t.Fatalf("overlapping launch must be skipped, got %d launches", got)
	}

	close(release)

	// После завершения запись снова свободна
	deadline = time.After(time.Second)
	for {
		s.fire("nightly", spec)
		if launches.Load() == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("entry was not released after launch finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
