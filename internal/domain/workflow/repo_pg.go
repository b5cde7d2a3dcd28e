package workflow

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

func (r *repoPG) GetPatientState(ctx context.Context, patientID uuid.UUID) (*PatientState, error) {
	var state PatientState
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, status, assigned_manager_id
		FROM patients
		WHERE id = $1 AND deleted_at IS NULL`, patientID,
	).Scan(&state.ID, &state.Status, &state.AssignedManagerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient state: %w", err)
	}
	return &state, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, patientID uuid.UUID, expected, target Status, managerID *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET status = $1,
		    assigned_manager_id = COALESCE($2, assigned_manager_id),
		    updated_at = now()
		WHERE id = $3 AND status = $4 AND deleted_at IS NULL`,
		target, managerID, patientID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("update patient status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AppendHistory(ctx context.Context, h *StatusHistory) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_status_history
			(id, patient_id, from_status, to_status, note, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.PatientID, h.FromStatus, h.ToStatus, h.Note, h.ChangedBy, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *repoPG) GetHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_status_history WHERE patient_id = $1`, patientID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count status history: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, patient_id, from_status, to_status, note, changed_by, created_at
		FROM patient_status_history
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var history []*StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.PatientID, &h.FromStatus, &h.ToStatus, &h.Note, &h.ChangedBy, &h.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, &h)
	}
	return history, total, rows.Err()
}
