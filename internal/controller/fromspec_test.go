package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/registry"
)

func TestFromSpec(t *testing.T) {
	specJSON := []byte(`{
		"project": "demo",
		"name": "training",
		"default_queue": "gpu",
		"templates": [
			{
				"project": "demo",
				"name": "prepare",
				"config": {"General": {"entry_point": "prepare.sh"}}
			},
			{
				"project": "demo",
				"name": "train",
				"config": {"General": {"entry_point": "train.sh", "dataset": ""}}
			}
		],
		"steps": [
			{"name": "P1", "template": {"project": "demo", "name": "prepare"}},
			{
				"name": "T1",
				"template": {"project": "demo", "name": "train"},
				"overrides": [{"key": "dataset", "value": "${P1.id}"}],
				"parents": ["P1"]
			}
		]
	}`)

	spec, err := domain.ParsePipelineSpec(specJSON)
	if err != nil {
		t.Fatalf("ParsePipelineSpec: %v", err)
	}

	fab := newFakeFabric()
	cfg := Config{
		Registry:     registry.NewMemory(),
		Fabric:       fab,
		PollInterval: 2 * time.Millisecond,
	}

	c, err := FromSpec(context.Background(), cfg, spec)
	if err != nil {
		t.Fatalf("FromSpec: %v", err)
	}

	// Идентичность и очередь по умолчанию подхвачены из определения
	if err := c.StartLocally(context.Background(), ""); err != nil {
		t.Fatalf("StartLocally: %v", err)
	}

	if got := c.Status(); got != domain.PipelineStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}

	p1ID, _ := c.InstanceID("P1")
	dataset, _ := fab.instance("T1").Parameters.Get("General", "dataset")
	if dataset != p1ID.String() {
		t.Errorf("T1 dataset: expected %s, got %s", p1ID, dataset)
	}

	fab.mu.Lock()
	for _, s := range fab.submissions {
		if s.queue != "gpu" {
			t.Errorf("step %s: expected spec default queue gpu, got %s", s.step, s.queue)
		}
	}
	fab.mu.Unlock()
}

func TestFromSpec_Invalid(t *testing.T) {
	spec := &domain.PipelineSpec{
		Project: "demo",
		Name:    "broken",
		Steps: []domain.StepSpec{
			{Name: "A", Template: domain.TemplateRef{Project: "demo", Name: "prepare"}, Parents: []string{"B"}},
		},
	}

	cfg := Config{Registry: registry.NewMemory(), Fabric: newFakeFabric()}

	_, err := FromSpec(context.Background(), cfg, spec)
	if !errors.Is(err, engine.ErrUnknownParent) {
		t.Fatalf("expected ErrUnknownParent, got %v", err)
	}
}
