package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memoria/internal/match"
	"memoria/internal/review/models"
	wmodels "memoria/internal/watchlist/models"
	dErrors "memoria/pkg/domain-errors"
	"memoria/pkg/platform/sentinel"
)

// PostgresQueue persists review items in PostgreSQL. The open-item dedupe
// rides on a partial unique index, so concurrent enqueues of the same entity
// race safely; resolution is a conditional UPDATE guarded by status.
type PostgresQueue struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed review queue.
func NewPostgres(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

const uniqueViolation = "23505"

func (q *PostgresQueue) Enqueue(ctx context.Context, item *models.ReviewItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	var matchedID any
	if item.Match.Entity != nil {
		matchedID = item.Match.Entity.ID
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO review_items (
			id, raw_text, normalized_text, entity_type, article_context,
			source_confidence, matched_entity_id, score, match_type,
			status, curator_attempts, version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		item.ID,
		item.Entity.RawText,
		item.Entity.NormalizedText,
		item.Entity.Type,
		item.Entity.ArticleContext,
		item.Entity.SourceConfidence,
		matchedID,
		item.Match.Score,
		item.Match.Type,
		item.Status,
		item.CuratorAttempts,
		item.Version,
		item.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return dErrors.Wrap(dErrors.CodeDuplicateReview, "an open review already exists for this entity", err)
		}
		return fmt.Errorf("enqueue review item: %w", err)
	}
	return nil
}

const reviewColumns = `
	r.id, r.raw_text, r.normalized_text, r.entity_type, r.article_context,
	r.source_confidence, r.score, r.match_type, r.status,
	r.verdict_recommendation, r.verdict_confidence, r.verdict_explanation,
	r.verdict_category, r.verdict_issues,
	r.resolved_by, r.curator_attempts, r.version, r.created_at, r.resolved_at,
	w.id, w.external_id, w.source, w.full_name, w.normalized_name,
	w.aliases, w.normalized_aliases, w.sanctions_programs,
	w.tier, w.confidence_level
`

const reviewFrom = `
	FROM review_items r
	LEFT JOIN watchlist_entities w ON w.id = r.matched_entity_id
`

func (q *PostgresQueue) Get(ctx context.Context, id uuid.UUID) (*models.ReviewItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+reviewColumns+reviewFrom+` WHERE r.id = $1`, id)

	item, err := scanReviewItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return item, nil
}

func (q *PostgresQueue) ListPending(ctx context.Context, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE r.status = 'pending'`
	args := []any{}
	if cursor != "" {
		afterAt, afterID, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		query += ` AND (r.created_at, r.id) > ($1, $2)`
		args = append(args, afterAt, afterID)
	}
	query += fmt.Sprintf(` ORDER BY r.created_at, r.id LIMIT %d`, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list pending reviews: %w", err)
	}
	defer rows.Close()

	page := Page{}
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan review item: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate review items: %w", err)
	}

	if len(page.Items) == limit {
		last := page.Items[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (q *PostgresQueue) Resolve(ctx context.Context, id uuid.UUID, verdict models.CuratorVerdict, resolvedBy string) (*models.ReviewItem, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE review_items SET
			status = $2,
			verdict_recommendation = $3,
			verdict_confidence = $4,
			verdict_explanation = $5,
			verdict_category = NULLIF($6, ''),
			verdict_issues = $7,
			resolved_by = $8,
			resolved_at = $9,
			version = version + 1
		WHERE id = $1 AND status = 'pending'
	`,
		id,
		verdict.Recommendation.Status(),
		verdict.Recommendation,
		verdict.Confidence,
		verdict.Explanation,
		verdict.SuggestedCategory,
		pq.Array(verdict.Issues),
		resolvedBy,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve review item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("resolve review item: %w", err)
	}
	if affected == 1 {
		return q.Get(ctx, id)
	}

	// The conditional update missed: either the item never existed or it was
	// already resolved. Distinguish for the caller.
	current, err := q.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "review item not found")
		}
		return nil, err
	}
	return nil, dErrors.New(dErrors.CodeAlreadyResolved, "review item is no longer pending").
		WithDetail("current_status", string(current.Status))
}

func (q *PostgresQueue) RecordAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := q.db.QueryRowContext(ctx, `
		UPDATE review_items
		SET curator_attempts = curator_attempts + 1
		WHERE id = $1 AND status = 'pending'
		RETURNING curator_attempts
	`, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, q.attemptMissReason(ctx, id)
		}
		return 0, fmt.Errorf("record curator attempt: %w", err)
	}
	return attempts, nil
}

func (q *PostgresQueue) attemptMissReason(ctx context.Context, id uuid.UUID) error {
	current, err := q.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "review item not found")
		}
		return err
	}
	return dErrors.New(dErrors.CodeAlreadyResolved, "review item is no longer pending").
		WithDetail("current_status", string(current.Status))
}

func (q *PostgresQueue) CountPending(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM review_items WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return count, nil
}

func scanReviewItem(row interface{ Scan(...any) error }) (*models.ReviewItem, error) {
	var (
		item models.ReviewItem

		recommendation sql.NullString
		confidence     sql.NullFloat64
		explanation    sql.NullString
		category       sql.NullString
		issues         []string
		resolvedBy     sql.NullString
		resolvedAt     sql.NullTime

		entityID        uuid.NullUUID
		externalID      sql.NullString
		source          sql.NullString
		fullName        sql.NullString
		normalizedName  sql.NullString
		aliases         []string
		normAliases     []string
		programs        []string
		tier            sql.NullInt64
		confidenceLevel sql.NullInt64
	)

	err := row.Scan(
		&item.ID,
		&item.Entity.RawText,
		&item.Entity.NormalizedText,
		&item.Entity.Type,
		&item.Entity.ArticleContext,
		&item.Entity.SourceConfidence,
		&item.Match.Score,
		&item.Match.Type,
		&item.Status,
		&recommendation,
		&confidence,
		&explanation,
		&category,
		pq.Array(&issues),
		&resolvedBy,
		&item.CuratorAttempts,
		&item.Version,
		&item.CreatedAt,
		&resolvedAt,
		&entityID,
		&externalID,
		&source,
		&fullName,
		&normalizedName,
		pq.Array(&aliases),
		pq.Array(&normAliases),
		pq.Array(&programs),
		&tier,
		&confidenceLevel,
	)
	if err != nil {
		return nil, err
	}

	if recommendation.Valid {
		item.Verdict = &models.CuratorVerdict{
			Recommendation:    models.Recommendation(recommendation.String),
			Confidence:        confidence.Float64,
			Explanation:       explanation.String,
			SuggestedCategory: category.String,
			Issues:            issues,
		}
	}
	item.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		at := resolvedAt.Time
		item.ResolvedAt = &at
	}

	if entityID.Valid {
		item.Match.Entity = &wmodels.Entity{
			ID:                entityID.UUID,
			ExternalID:        externalID.String,
			Source:            source.String,
			FullName:          fullName.String,
			NormalizedName:    normalizedName.String,
			Aliases:           aliases,
			NormalizedAliases: normAliases,
			SanctionsPrograms: programs,
			Tier:              int(tier.Int64),
			ConfidenceLevel:   int(confidenceLevel.Int64),
		}
	} else if item.Match.Type == "" {
		item.Match.Type = match.TypeNone
	}

	return &item, nil
}
