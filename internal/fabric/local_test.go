package fabric

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

func testInstance() *domain.Instance {
	return &domain.Instance{
		ID:         uuid.New(),
		StepName:   "step",
		PipelineID: uuid.New(),
		Parameters: domain.Configuration{},
	}
}

func pollUntilTerminal(t *testing.T, l *Local, h Handle) *Report {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		report, err := l.Poll(context.Background(), h)
		if err != nil {
			t.Fatalf("poll error: %v", err)
		}
		if report.Status.IsTerminal() {
			return report
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("handle never reached a terminal status")
	return nil
}

func TestLocal_SubmitCompletes(t *testing.T) {
	l := NewLocal(func(ctx context.Context, inst *domain.Instance) (map[string]string, error) {
		return map[string]string{"rows": "100"}, nil
	}, nil)

	h, err := l.Submit(context.Background(), testInstance(), "services")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := pollUntilTerminal(t, l, h)
	if report.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", report.Status)
	}
	if report.Outputs["rows"] != "100" {
		t.Errorf("expected outputs to carry rows=100, got %v", report.Outputs)
	}
}

func TestLocal_SubmitFails(t *testing.T) {
	l := NewLocal(func(ctx context.Context, inst *domain.Instance) (map[string]string, error) {
		return nil, errors.New("boom")
	}, nil)

	h, _ := l.Submit(context.Background(), testInstance(), "services")

	report := pollUntilTerminal(t, l, h)
	if report.Status != StatusFailed {
		t.Errorf("expected failed, got %s", report.Status)
	}
	if report.Error != "boom" {
		t.Errorf("expected error text boom, got %q", report.Error)
	}
}

func TestLocal_Cancel(t *testing.T) {
	started := make(chan struct{})
	l := NewLocal(func(ctx context.Context, inst *domain.Instance) (map[string]string, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)

	h, _ := l.Submit(context.Background(), testInstance(), "services")
	<-started

	if err := l.Cancel(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := pollUntilTerminal(t, l, h)
	if report.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", report.Status)
	}
}

func TestLocal_PollUnknownHandle(t *testing.T) {
	l := NewLocal(nil, nil)

	_, err := l.Poll(context.Background(), Handle("ghost"))
	if !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
}
