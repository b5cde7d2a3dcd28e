package survey

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, t *Token) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO survey_tokens (id, value, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Value, t.ExpiresAt, t.CreatedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert survey token: %w", err)
	}
	return nil
}

func (r *repoPG) GetByValue(ctx context.Context, value string) (*Token, error) {
	var t Token
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, value, expires_at, used_at, patient_id, created_by, created_at
		FROM survey_tokens
		WHERE value = $1`, value,
	).Scan(&t.ID, &t.Value, &t.ExpiresAt, &t.UsedAt, &t.PatientID, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get survey token: %w", err)
	}
	return &t, nil
}

func (r *repoPG) MarkUsed(ctx context.Context, id uuid.UUID, patientID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE survey_tokens
		SET used_at = now(), patient_id = $1
		WHERE id = $2 AND used_at IS NULL`,
		patientID, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark survey token used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Token, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM survey_tokens`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count survey tokens: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, value, expires_at, used_at, patient_id, created_by, created_at
		FROM survey_tokens
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list survey tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.Value, &t.ExpiresAt, &t.UsedAt, &t.PatientID, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan survey token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, total, rows.Err()
}
