package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/registry"
)

// TemplateRepo — реестр шаблонов поверх Postgres.
//
// Реализует registry.Registry: Lookup отдаёт последнюю публикацию под
// адресом project/name, Publish добавляет новую запись (история
// публикаций сохраняется, активной считается самая свежая).
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// Lookup возвращает последний опубликованный шаблон по адресу.
func (r *TemplateRepo) Lookup(ctx context.Context, ref domain.TemplateRef) (*domain.Template, error) {
	query := `
		SELECT project, name, config, created_at
		FROM templates
		WHERE project = $1 AND name = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var tmpl domain.Template
	var configJSON []byte
	err := r.pool.QueryRow(ctx, query, ref.Project, ref.Name).Scan(
		&tmpl.Project,
		&tmpl.Name,
		&configJSON,
		&tmpl.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	if err := json.Unmarshal(configJSON, &tmpl.Config); err != nil {
		return nil, fmt.Errorf("unmarshal template config: %w", err)
	}

	return &tmpl, nil
}

// Publish сохраняет новую публикацию шаблона.
func (r *TemplateRepo) Publish(ctx context.Context, tmpl *domain.Template) error {
	if tmpl.Name == "" {
		return fmt.Errorf("template has empty name")
	}

	configJSON, err := json.Marshal(tmpl.Config)
	if err != nil {
		return fmt.Errorf("marshal template config: %w", err)
	}

	createdAt := tmpl.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO templates (project, name, config, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.pool.Exec(ctx, query, tmpl.Project, tmpl.Name, configJSON, createdAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// List возвращает адреса всех шаблонов проекта.
func (r *TemplateRepo) List(ctx context.Context, project string) ([]domain.TemplateRef, error) {
	query := `
		SELECT DISTINCT project, name
		FROM templates
		WHERE project = $1
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var refs []domain.TemplateRef
	for rows.Next() {
		var ref domain.TemplateRef
		if err := rows.Scan(&ref.Project, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan template ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
