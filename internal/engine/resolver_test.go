package engine

import (
	"errors"
	"testing"
)

func TestResultSet_Resolve_Literal(t *testing.T) {
	rs := NewResultSet()

	tests := []string{
		"",
		"plain value",
		"42",
		"no ${ closing brace",
		"$not-a-reference",
	}

	for _, value := range tests {
		got, err := rs.Resolve(value)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", value, err)
		}
		if got != value {
			t.Errorf("Resolve(%q) = %q, literal should pass through unchanged", value, got)
		}
	}
}

func TestResultSet_Resolve_InstanceID(t *testing.T) {
	rs := NewResultSet()
	rs.Register("prepare")
	rs.Complete("prepare", "abc-123", nil)

	got, err := rs.Resolve("${prepare.id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc-123" {
		t.Errorf("expected abc-123, got %q", got)
	}
}

func TestResultSet_Resolve_OutputField(t *testing.T) {
	rs := NewResultSet()
	rs.Complete("train", "id-1", map[string]string{"accuracy": "0.92"})

	got, err := rs.Resolve("${train.accuracy}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0.92" {
		t.Errorf("expected 0.92, got %q", got)
	}
}

func TestResultSet_Resolve_Embedded(t *testing.T) {
	rs := NewResultSet()
	rs.Complete("t1", "id-1", nil)
	rs.Complete("t2", "id-2", nil)

	// Multiple references inside one literal: surrounding text is preserved
	got, err := rs.Resolve("[${t1.id}, ${t2.id}]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[id-1, id-2]" {
		t.Errorf("expected [id-1, id-2], got %q", got)
	}
}

func TestResultSet_Resolve_UnknownStep(t *testing.T) {
	rs := NewResultSet()

	_, err := rs.Resolve("${ghost.id}")
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestResultSet_Resolve_NotReady(t *testing.T) {
	rs := NewResultSet()
	rs.Register("pending")

	_, err := rs.Resolve("${pending.id}")
	if !errors.Is(err, ErrReferenceNotReady) {
		t.Errorf("expected ErrReferenceNotReady, got %v", err)
	}
}

func TestResultSet_Resolve_MissingField(t *testing.T) {
	rs := NewResultSet()
	rs.Complete("train", "id-1", map[string]string{"accuracy": "0.92"})

	_, err := rs.Resolve("${train.loss}")
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestResultSet_Resolve_PartialFailureReturnsNothing(t *testing.T) {
	rs := NewResultSet()
	rs.Complete("t1", "id-1", nil)

	// First reference resolves, second fails: whole value must fail
	_, err := rs.Resolve("[${t1.id}, ${ghost.id}]")
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestHasReference(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"${step.id}", true},
		{"prefix ${step.field} suffix", true},
		{"literal", false},
		{"${incomplete", false},
		{"${no-dot}", false},
	}

	for _, tt := range tests {
		if got := HasReference(tt.value); got != tt.want {
			t.Errorf("HasReference(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
