package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func TestValidate(t *testing.T) {
	ref := domain.TemplateRef{Project: "examples", Name: "base"}

	tests := []struct {
		name    string
		spec    *domain.PipelineSpec
		wantErr error
	}{
		{
			name:    "nil spec",
			spec:    nil,
			wantErr: ErrEmptySteps,
		},
		{
			name:    "no steps",
			spec:    &domain.PipelineSpec{Steps: []domain.StepSpec{}},
			wantErr: ErrEmptySteps,
		},
		{
			name: "valid chain",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a", Template: ref},
				{Name: "b", Template: ref, Parents: []string{"a"}},
			}},
		},
		{
			name: "missing template ref",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a"},
			}},
			wantErr: ErrTemplateNotFound,
		},
		{
			name: "duplicate name",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a", Template: ref},
				{Name: "a", Template: ref},
			}},
			wantErr: ErrDuplicateStep,
		},
		{
			name: "unknown parent",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a", Template: ref, Parents: []string{"ghost"}},
			}},
			wantErr: ErrUnknownParent,
		},
		{
			name: "forward reference is unknown parent",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a", Template: ref, Parents: []string{"b"}},
				{Name: "b", Template: ref},
			}},
			wantErr: ErrUnknownParent,
		},
		{
			name: "self dependency",
			spec: &domain.PipelineSpec{Steps: []domain.StepSpec{
				{Name: "a", Template: ref, Parents: []string{"a"}},
			}},
			wantErr: ErrCyclicDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
