package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

func testTemplate() *domain.Template {
	return &domain.Template{
		Project: "examples",
		Name:    "base-train",
		Config: domain.Configuration{
			"General": {
				"epochs":  "10",
				"dataset": "default",
			},
		},
	}
}

func TestInstantiate_CloneDefaults(t *testing.T) {
	step := &domain.Step{Name: "train", Template: domain.TemplateRef{Project: "examples", Name: "base-train"}}

	inst, err := Instantiate(step, testTemplate(), uuid.New(), NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.ID == uuid.Nil {
		t.Error("instance should have an ID")
	}
	if inst.StepName != "train" {
		t.Errorf("expected step name train, got %s", inst.StepName)
	}
	if got, _ := inst.Parameters.Get("General", "epochs"); got != "10" {
		t.Errorf("template default should survive, got %q", got)
	}
}

func TestInstantiate_OverrideWinsOverDefault(t *testing.T) {
	step := &domain.Step{
		Name: "train",
		Overrides: []domain.Override{
			{Key: "General/epochs", Value: "50"},
		},
	}

	inst, err := Instantiate(step, testTemplate(), uuid.New(), NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := inst.Parameters.Get("General", "epochs"); got != "50" {
		t.Errorf("override should win over template default, got %q", got)
	}
}

func TestInstantiate_LaterOverrideWins(t *testing.T) {
	step := &domain.Step{
		Name: "train",
		Overrides: []domain.Override{
			{Key: "General/epochs", Value: "20"},
			{Key: "General/epochs", Value: "30"},
		},
	}

	inst, err := Instantiate(step, testTemplate(), uuid.New(), NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := inst.Parameters.Get("General", "epochs"); got != "30" {
		t.Errorf("later override should win on path collision, got %q", got)
	}
}

func TestInstantiate_InsertsMissingPath(t *testing.T) {
	step := &domain.Step{
		Name: "train",
		Overrides: []domain.Override{
			{Key: "Extra/flag", Value: "on"},
			// Key without a section goes to General
			{Key: "data_task_id", Value: "42"},
		},
	}

	inst, err := Instantiate(step, testTemplate(), uuid.New(), NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := inst.Parameters.Get("Extra", "flag"); got != "on" {
		t.Errorf("missing section should be created, got %q", got)
	}
	if got, _ := inst.Parameters.Get("General", "data_task_id"); got != "42" {
		t.Errorf("bare key should land in General, got %q", got)
	}
}

func TestInstantiate_ResolvesReferences(t *testing.T) {
	rs := NewResultSet()
	rs.Complete("prepare", "prep-id", map[string]string{"rows": "1000"})

	step := &domain.Step{
		Name: "train",
		Overrides: []domain.Override{
			{Key: "General/data_task_id", Value: "${prepare.id}"},
			{Key: "General/row_count", Value: "rows=${prepare.rows}"},
		},
	}

	inst, err := Instantiate(step, testTemplate(), uuid.New(), rs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := inst.Parameters.Get("General", "data_task_id"); got != "prep-id" {
		t.Errorf("expected prep-id, got %q", got)
	}
	if got, _ := inst.Parameters.Get("General", "row_count"); got != "rows=1000" {
		t.Errorf("expected rows=1000, got %q", got)
	}
}

func TestInstantiate_ResolutionErrorAborts(t *testing.T) {
	step := &domain.Step{
		Name: "train",
		Overrides: []domain.Override{
			{Key: "General/data_task_id", Value: "${ghost.id}"},
		},
	}

	_, err := Instantiate(step, testTemplate(), uuid.New(), NewResultSet(), nil)
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestInstantiate_NoSharedState(t *testing.T) {
	tmpl := testTemplate()
	pipelineID := uuid.New()

	first, err := Instantiate(&domain.Step{Name: "a"}, tmpl, pipelineID, NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Instantiate(&domain.Step{
		Name:      "b",
		Overrides: []domain.Override{{Key: "General/epochs", Value: "99"}},
	}, tmpl, pipelineID, NewResultSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating one instance must not leak into the other or the template
	first.Parameters.Set("General", "epochs", "777")

	if got, _ := second.Parameters.Get("General", "epochs"); got != "99" {
		t.Errorf("second instance affected by first, got %q", got)
	}
	if got, _ := tmpl.Config.Get("General", "epochs"); got != "10" {
		t.Errorf("template mutated by instance, got %q", got)
	}
}

func TestInstantiate_Tags(t *testing.T) {
	tags := []string{"pipeline:demo/1.0"}

	inst, err := Instantiate(&domain.Step{Name: "a"}, testTemplate(), uuid.New(), NewResultSet(), tags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inst.Tags) != 1 || inst.Tags[0] != "pipeline:demo/1.0" {
		t.Errorf("expected pipeline tag, got %v", inst.Tags)
	}

	// The instance owns its tag slice
	tags[0] = "mutated"
	if inst.Tags[0] != "pipeline:demo/1.0" {
		t.Error("instance tags should be copied, not aliased")
	}
}
