package controller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Definition — персистированное определение pipeline.
//
// Хранит структурный хэш, по которому контроллер решает, изменилось ли
// определение под тем же именем, и нужен ли version bump.
type Definition struct {
	// Project — проект pipeline.
	Project string `json:"project"`

	// Name — имя pipeline.
	Name string `json:"name"`

	// Version — версия определения.
	Version string `json:"version"`

	// Hash — структурный хэш (см. StructureHash).
	Hash string `json:"hash"`

	// CreatedAt — время сохранения определения.
	CreatedAt time.Time `json:"created_at"`
}

// DefinitionStore — хранилище определений pipeline.
//
// Latest возвращает (nil, nil), если определений с таким именем ещё нет.
// Реализации: MemoryDefinitions (в памяти), repo.PipelineRepo (Postgres).
type DefinitionStore interface {
	Latest(ctx context.Context, project, name string) (*Definition, error)
	Save(ctx context.Context, def *Definition) error
}

// stepShape — каноническое представление шага для структурного хэша.
type stepShape struct {
	Name      string             `json:"name"`
	Template  domain.TemplateRef `json:"template"`
	Overrides []domain.Override  `json:"overrides,omitempty"`
	Parents   []string           `json:"parents,omitempty"`
}

// StructureHash вычисляет детерминированный хэш структуры pipeline:
// ссылки на шаблоны, выражения overrides и рёбра графа. Значения очередей
// и теги в хэш не входят — они не меняют структуру вычисления.
func StructureHash(steps []stepShape) string {
	// json.Marshal детерминирован для срезов структур
	data, err := json.Marshal(steps)
	if err != nil {
		// stepShape не содержит немаршалящихся типов
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryDefinitions — DefinitionStore в памяти.
// Используется в тестах и при запусках без БД.
type MemoryDefinitions struct {
	mu   sync.Mutex
	defs map[string][]*Definition
}

// NewMemoryDefinitions создаёт пустое хранилище.
func NewMemoryDefinitions() *MemoryDefinitions {
	return &MemoryDefinitions{
		defs: make(map[string][]*Definition),
	}
}

func definitionKey(project, name string) string {
	return project + "/" + name
}

// Latest возвращает последнее сохранённое определение.
func (m *MemoryDefinitions) Latest(ctx context.Context, project, name string) (*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.defs[definitionKey(project, name)]
	if len(history) == 0 {
		return nil, nil
	}

	copied := *history[len(history)-1]
	return &copied, nil
}

// Save добавляет определение в историю.
func (m *MemoryDefinitions) Save(ctx context.Context, def *Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *def
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	key := definitionKey(def.Project, def.Name)
	m.defs[key] = append(m.defs[key], &stored)
	return nil
}
