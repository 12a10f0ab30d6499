package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"enrollapi/internal/model"
	"enrollapi/internal/repository"
)

// ApplicantPostgres is a PostgreSQL implementation of repository.ApplicantRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Requirements and documents are stored as JSONB columns.
type ApplicantPostgres struct {
	db *sql.DB
}

// NewApplicantPostgres creates a new ApplicantPostgres repository.
func NewApplicantPostgres(db *sql.DB) *ApplicantPostgres {
	return &ApplicantPostgres{db: db}
}

var _ repository.ApplicantRepository = (*ApplicantPostgres)(nil)

const applicantColumns = `id, form_type, first_name, last_name, birthdate, email, phone,
		grade_level, student_type, previous_school, requirements, documents, status,
		created_at, updated_at`

func scanApplicant(row interface{ Scan(...any) error }) (*model.Applicant, error) {
	var (
		a        model.Applicant
		reqsRaw  []byte
		docsRaw  []byte
		formType string
		status   string
		stype    string
	)
	if err := row.Scan(
		&a.ID,
		&formType,
		&a.FirstName,
		&a.LastName,
		&a.Birthdate,
		&a.Email,
		&a.Phone,
		&a.GradeLevel,
		&stype,
		&a.PreviousSchool,
		&reqsRaw,
		&docsRaw,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.FormType = model.FormType(formType)
	a.Status = model.ApplicationStatus(status)
	a.StudentType = model.StudentType(stype)
	if err := json.Unmarshal(reqsRaw, &a.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	if err := json.Unmarshal(docsRaw, &a.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return &a, nil
}

// Create inserts a new application row and returns the stored record.
func (r *ApplicantPostgres) Create(ctx context.Context, a *model.Applicant) (*model.Applicant, error) {
	reqsRaw, err := json.Marshal(a.Requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	docs := a.Documents
	if docs == nil {
		docs = []model.Document{}
	}
	docsRaw, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}

	q := `
		INSERT INTO applicants (id, form_type, first_name, last_name, birthdate, email, phone,
			grade_level, student_type, previous_school, requirements, documents, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + applicantColumns
	row := r.db.QueryRowContext(ctx, q,
		a.ID,
		string(a.FormType),
		a.FirstName,
		a.LastName,
		a.Birthdate,
		a.Email,
		a.Phone,
		a.GradeLevel,
		string(a.StudentType),
		a.PreviousSchool,
		reqsRaw,
		docsRaw,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	return scanApplicant(row)
}

// FindByID fetches a single application by its ID.
func (r *ApplicantPostgres) FindByID(ctx context.Context, id string) (*model.Applicant, error) {
	q := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1`
	return scanApplicant(r.db.QueryRowContext(ctx, q, id))
}

// List returns applications using LIMIT/OFFSET pagination, optional form
// type and status filters, and a total count.
func (r *ApplicantPostgres) List(ctx context.Context, f repository.ApplicantFilter) (*repository.PageResult[model.Applicant], error) {
	var (
		conds []string
		args  []any
	)
	if f.FormType != "" {
		args = append(args, string(f.FormType))
		conds = append(conds, fmt.Sprintf("form_type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM applicants"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, f.Page.Limit)
	limitPos := len(args)
	args = append(args, f.Page.Offset)
	offsetPos := len(args)

	q := fmt.Sprintf(`SELECT %s FROM applicants%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		applicantColumns, where, limitPos, offsetPos)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Applicant, 0)
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Applicant]{Items: items, Total: total}, nil
}

// Finalize writes documents + requirements and flips pending to submitted in
// one guarded UPDATE, so a lost race between two finalize calls cannot write
// twice.
func (r *ApplicantPostgres) Finalize(ctx context.Context, id string, docs []model.Document, reqs map[string]model.Requirement) (bool, error) {
	if docs == nil {
		docs = []model.Document{}
	}
	docsRaw, err := json.Marshal(docs)
	if err != nil {
		return false, fmt.Errorf("encode documents: %w", err)
	}
	reqsRaw, err := json.Marshal(reqs)
	if err != nil {
		return false, fmt.Errorf("encode requirements: %w", err)
	}

	const q = `
		UPDATE applicants
		SET documents = $2, requirements = $3, status = 'submitted', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, q, id, docsRaw, reqsRaw)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus transitions between two known statuses.
func (r *ApplicantPostgres) UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (bool, error) {
	const q = `
		UPDATE applicants SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, q, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateRequirements overwrites the requirements map.
func (r *ApplicantPostgres) UpdateRequirements(ctx context.Context, id string, reqs map[string]model.Requirement) error {
	reqsRaw, err := json.Marshal(reqs)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	const q = `UPDATE applicants SET requirements = $2, updated_at = now() WHERE id = $1`
	_, err = r.db.ExecContext(ctx, q, id, reqsRaw)
	return err
}

// Delete removes an application by ID. It does not return an error if the row does not exist.
func (r *ApplicantPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM applicants WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
