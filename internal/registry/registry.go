// Package registry предоставляет реестр шаблонов шагов.
//
// Реестр хранит неизменяемые шаблоны и отдаёт их по адресу проект+имя.
// Memory — реализация в памяти для тестов и локальных запусков;
// персистентная реализация поверх Postgres живёт в internal/repo.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// ErrNotFound — шаблон не найден в реестре.
var ErrNotFound = errors.New("template not found in registry")

// Registry — реестр шаблонов.
//
// Lookup возвращает снимок шаблона: вызывающий код может свободно
// модифицировать результат, оригинал в реестре не меняется.
type Registry interface {
	Lookup(ctx context.Context, ref domain.TemplateRef) (*domain.Template, error)
	Publish(ctx context.Context, tmpl *domain.Template) error
}

// Memory — потокобезопасный реестр шаблонов в памяти.
type Memory struct {
	mu        sync.RWMutex
	templates map[domain.TemplateRef]*domain.Template
}

// NewMemory создаёт пустой реестр в памяти.
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[domain.TemplateRef]*domain.Template),
	}
}

// Lookup возвращает снимок шаблона по адресу.
func (m *Memory) Lookup(ctx context.Context, ref domain.TemplateRef) (*domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tmpl, ok := m.templates[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return tmpl.Snapshot(), nil
}

// Publish сохраняет шаблон в реестре.
// Повторная публикация по тому же адресу перезаписывает шаблон —
// уже выданные снимки при этом не затрагиваются.
func (m *Memory) Publish(ctx context.Context, tmpl *domain.Template) error {
	if tmpl.Name == "" {
		return errors.New("template has empty name")
	}

	stored := tmpl.Snapshot()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[stored.Ref()] = stored
	return nil
}
