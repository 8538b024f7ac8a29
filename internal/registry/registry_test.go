package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func TestMemory_LookupNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Lookup(context.Background(), domain.TemplateRef{Project: "p", Name: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_PublishAndLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tmpl := &domain.Template{
		Project: "examples",
		Name:    "base-train",
		Config:  domain.Configuration{"General": {"epochs": "10"}},
	}
	if err := m.Publish(ctx, tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Lookup(ctx, tmpl.Ref())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := got.Config.Get("General", "epochs"); v != "10" {
		t.Errorf("expected epochs=10, got %q", v)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on publish")
	}
}

func TestMemory_LookupReturnsSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tmpl := &domain.Template{
		Project: "examples",
		Name:    "base-train",
		Config:  domain.Configuration{"General": {"epochs": "10"}},
	}
	_ = m.Publish(ctx, tmpl)

	first, _ := m.Lookup(ctx, tmpl.Ref())
	first.Config.Set("General", "epochs", "999")

	second, _ := m.Lookup(ctx, tmpl.Ref())
	if v, _ := second.Config.Get("General", "epochs"); v != "10" {
		t.Errorf("registry template mutated through snapshot, got %q", v)
	}
}

func TestMemory_PublishEmptyName(t *testing.T) {
	m := NewMemory()

	if err := m.Publish(context.Background(), &domain.Template{Project: "p"}); err == nil {
		t.Error("expected error for empty template name")
	}
}
