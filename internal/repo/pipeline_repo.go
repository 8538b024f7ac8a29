package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/controller"
)

// PipelineRepo — хранилище определений pipeline поверх Postgres.
//
// Реализует controller.DefinitionStore: история версий с их структурными
// хэшами, по которым контроллер решает вопрос version bump.
type PipelineRepo struct {
	pool *pgxpool.Pool
}

// NewPipelineRepo создаёт новый PipelineRepo.
func NewPipelineRepo(pool *pgxpool.Pool) *PipelineRepo {
	return &PipelineRepo{pool: pool}
}

// Latest возвращает последнее сохранённое определение pipeline.
// Возвращает (nil, nil), если определений под этим именем ещё нет —
// так того требует контракт DefinitionStore.
func (r *PipelineRepo) Latest(ctx context.Context, project, name string) (*controller.Definition, error) {
	query := `
		SELECT project, name, version, hash, created_at
		FROM pipeline_definitions
		WHERE project = $1 AND name = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var def controller.Definition
	err := r.pool.QueryRow(ctx, query, project, name).Scan(
		&def.Project,
		&def.Name,
		&def.Version,
		&def.Hash,
		&def.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest definition: %w", err)
	}
	return &def, nil
}

// Save добавляет определение в историю.
func (r *PipelineRepo) Save(ctx context.Context, def *controller.Definition) error {
	createdAt := def.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO pipeline_definitions (project, name, version, hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, def.Project, def.Name, def.Version, def.Hash, createdAt)
	if err != nil {
		return fmt.Errorf("insert definition: %w", err)
	}
	return nil
}

// Versions возвращает все версии определения, новые первыми.
func (r *PipelineRepo) Versions(ctx context.Context, project, name string) ([]controller.Definition, error) {
	query := `
		SELECT project, name, version, hash, created_at
		FROM pipeline_definitions
		WHERE project = $1 AND name = $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, project, name)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []controller.Definition
	for rows.Next() {
		var def controller.Definition
		if err := rows.Scan(
			&def.Project,
			&def.Name,
			&def.Version,
			&def.Hash,
			&def.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
