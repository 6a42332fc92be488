package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memoria/internal/watchlist/models"
	"memoria/pkg/platform/sentinel"
)

// PostgresStore persists watchlist entities in PostgreSQL. Reads rely on MVCC
// for isolation, so imports never block concurrent matching queries.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed watchlist store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, entity *models.Entity) (UpsertOutcome, error) {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	now := time.Now()

	query := `
		INSERT INTO watchlist_entities (
			id, external_id, source, full_name, normalized_name,
			aliases, normalized_aliases, sanctions_programs,
			tier, confidence_level, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (external_id, source) DO UPDATE SET
			full_name          = EXCLUDED.full_name,
			normalized_name    = EXCLUDED.normalized_name,
			aliases            = EXCLUDED.aliases,
			normalized_aliases = EXCLUDED.normalized_aliases,
			sanctions_programs = EXCLUDED.sanctions_programs,
			tier               = EXCLUDED.tier,
			confidence_level   = EXCLUDED.confidence_level,
			updated_at         = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted
	`

	var (
		id       uuid.UUID
		inserted bool
	)
	err := s.db.QueryRowContext(ctx, query,
		entity.ID,
		entity.ExternalID,
		entity.Source,
		entity.FullName,
		entity.NormalizedName,
		pq.Array(entity.Aliases),
		pq.Array(entity.NormalizedAliases),
		pq.Array(entity.SanctionsPrograms),
		entity.Tier,
		entity.ConfidenceLevel,
		now,
	).Scan(&id, &inserted)
	if err != nil {
		return OutcomeInserted, fmt.Errorf("upsert watchlist entity: %w", err)
	}

	entity.ID = id
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, source, full_name, normalized_name,
		       aliases, normalized_aliases, sanctions_programs,
		       tier, confidence_level, created_at, updated_at
		FROM watchlist_entities
		WHERE id = $1
	`, id)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find watchlist entity: %w", err)
	}
	return entity, nil
}

// Snapshot loads the full watchlist ordered by id for deterministic matching.
func (s *PostgresStore) Snapshot(ctx context.Context) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, source, full_name, normalized_name,
		       aliases, normalized_aliases, sanctions_programs,
		       tier, confidence_level, created_at, updated_at
		FROM watchlist_entities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot watchlist: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist entities: %w", err)
	}
	return entities, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM watchlist_entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count watchlist entities: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var entity models.Entity
	err := row.Scan(
		&entity.ID,
		&entity.ExternalID,
		&entity.Source,
		&entity.FullName,
		&entity.NormalizedName,
		pq.Array(&entity.Aliases),
		pq.Array(&entity.NormalizedAliases),
		pq.Array(&entity.SanctionsPrograms),
		&entity.Tier,
		&entity.ConfidenceLevel,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
