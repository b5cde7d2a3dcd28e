package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

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

func (r *repoPG) AppendEvent(ctx context.Context, e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_events
			(id, action, table_name, record_id, old_data, new_data,
			 user_id, user_role, ip_address, user_agent, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Action, e.TableName, e.RecordID, e.OldData, e.NewData,
		e.UserID, e.UserRole, e.IPAddress, e.UserAgent, e.RequestID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *repoPG) ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*Event, int, error) {
	where := []string{"TRUE"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Action != "" {
		where = append(where, "action = "+arg(filter.Action))
	}
	if filter.TableName != "" {
		where = append(where, "table_name = "+arg(filter.TableName))
	}
	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}

	clause := strings.Join(where, " AND ")
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	listArgs := append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT id, action, table_name, record_id, old_data, new_data,
		       user_id, user_role, ip_address, user_agent, request_id, created_at
		FROM audit_events
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)+1, len(args)+2,
	), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.Action, &e.TableName, &e.RecordID, &e.OldData, &e.NewData,
			&e.UserID, &e.UserRole, &e.IPAddress, &e.UserAgent, &e.RequestID, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, &e)
	}
	return events, total, rows.Err()
}

func (r *repoPG) AppendSSNAccess(ctx context.Context, a *SSNAccess) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ssn_access_logs
			(id, user_id, patient_id, action, success, error_message,
			 ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.PatientID, a.Action, a.Success, a.ErrorMessage,
		a.IPAddress, a.UserAgent, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ssn access log: %w", err)
	}
	return nil
}

func (r *repoPG) ListSSNAccess(ctx context.Context, filter AccessFilter, limit, offset int) ([]*SSNAccess, int, error) {
	where := []string{"TRUE"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if filter.PatientID != "" {
		where = append(where, "patient_id = "+arg(filter.PatientID))
	}
	if filter.Action != "" {
		where = append(where, "action = "+arg(filter.Action))
	}

	clause := strings.Join(where, " AND ")
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM ssn_access_logs WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ssn access logs: %w", err)
	}

	listArgs := append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, patient_id, action, success, error_message,
		       ip_address, user_agent, created_at
		FROM ssn_access_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)+1, len(args)+2,
	), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ssn access logs: %w", err)
	}
	defer rows.Close()

	var entries []*SSNAccess
	for rows.Next() {
		var a SSNAccess
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.PatientID, &a.Action, &a.Success, &a.ErrorMessage,
			&a.IPAddress, &a.UserAgent, &a.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ssn access log: %w", err)
		}
		entries = append(entries, &a)
	}
	return entries, total, rows.Err()
}
