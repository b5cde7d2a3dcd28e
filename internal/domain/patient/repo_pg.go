package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const patientColumns = `id, name, birth_date, gender, phone_mobile, email,
	address_line1, city, postal_code, referral_source, note,
	status, assigned_manager_id,
	ssn_encrypted, ssn_iv, ssn_tag, ssn_key_version, ssn_hash, ssn_masked,
	created_at, updated_at, deleted_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.Name, &p.BirthDate, &p.Gender, &p.PhoneMobile, &p.Email,
		&p.AddressLine1, &p.City, &p.PostalCode, &p.ReferralSource, &p.Note,
		&p.Status, &p.AssignedManagerID,
		&p.SSNEncrypted, &p.SSNIV, &p.SSNTag, &p.SSNKeyVersion, &p.SSNHash, &p.SSNMasked,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			id, name, birth_date, gender, phone_mobile, email,
			address_line1, city, postal_code, referral_source, note,
			status, assigned_manager_id,
			ssn_encrypted, ssn_iv, ssn_tag, ssn_key_version, ssn_hash, ssn_masked
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13,
			$14, $15, $16, $17, $18, $19
		)`,
		p.ID, p.Name, p.BirthDate, p.Gender, p.PhoneMobile, p.Email,
		p.AddressLine1, p.City, p.PostalCode, p.ReferralSource, p.Note,
		p.Status, p.AssignedManagerID,
		p.SSNEncrypted, p.SSNIV, p.SSNTag, p.SSNKeyVersion, p.SSNHash, p.SSNMasked,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on the ssn_hash index.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSSN
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanPatient(row)
}

func (r *repoPG) GetBySSNHash(ctx context.Context, hash string) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE ssn_hash = $1 AND deleted_at IS NULL`, hash)
	return scanPatient(row)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			name = $1, birth_date = $2, gender = $3, phone_mobile = $4, email = $5,
			address_line1 = $6, city = $7, postal_code = $8, referral_source = $9,
			note = $10, updated_at = now()
		WHERE id = $11 AND deleted_at IS NULL`,
		p.Name, p.BirthDate, p.Gender, p.PhoneMobile, p.Email,
		p.AddressLine1, p.City, p.PostalCode, p.ReferralSource,
		p.Note, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.ManagerID != "" {
		where = append(where, "assigned_manager_id = "+arg(filter.ManagerID))
	}
	if filter.Query != "" {
		q := arg("%" + filter.Query + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR phone_mobile ILIKE %s OR email ILIKE %s)", q, q, q))
	}

	clause := strings.Join(where, " AND ")
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	listArgs := append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patients WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientColumns, clause, len(args)+1, len(args)+2,
	), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}
