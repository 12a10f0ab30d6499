package postgres

import (
	"context"
	"database/sql"

	"enrollapi/internal/model"
	"enrollapi/internal/repository"
)

// StudentPostgres is a PostgreSQL implementation of repository.StudentRepository.
type StudentPostgres struct {
	db *sql.DB
}

func NewStudentPostgres(db *sql.DB) *StudentPostgres {
	return &StudentPostgres{db: db}
}

var _ repository.StudentRepository = (*StudentPostgres)(nil)

const studentColumns = `id, applicant_id, student_number, form_type, full_name, grade_level, enrolled_at`

func scanStudent(row interface{ Scan(...any) error }) (*model.Student, error) {
	var (
		s  model.Student
		ft string
	)
	if err := row.Scan(&s.ID, &s.ApplicantID, &s.StudentNumber, &ft, &s.FullName, &s.GradeLevel, &s.EnrolledAt); err != nil {
		return nil, err
	}
	s.FormType = model.FormType(ft)
	return &s, nil
}

func (r *StudentPostgres) Create(ctx context.Context, s *model.Student) (*model.Student, error) {
	q := `
		INSERT INTO students (id, applicant_id, student_number, form_type, full_name, grade_level, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + studentColumns
	row := r.db.QueryRowContext(ctx, q,
		s.ID, s.ApplicantID, s.StudentNumber, string(s.FormType), s.FullName, s.GradeLevel, s.EnrolledAt)
	return scanStudent(row)
}

func (r *StudentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Student], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + studentColumns + ` FROM students ORDER BY enrolled_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Student]{Items: items, Total: total}, nil
}

// AnnouncementPostgres is a PostgreSQL implementation of repository.AnnouncementRepository.
type AnnouncementPostgres struct {
	db *sql.DB
}

func NewAnnouncementPostgres(db *sql.DB) *AnnouncementPostgres {
	return &AnnouncementPostgres{db: db}
}

var _ repository.AnnouncementRepository = (*AnnouncementPostgres)(nil)

const announcementColumns = `id, title, body, author, pinned, created_at, updated_at`

func scanAnnouncement(row interface{ Scan(...any) error }) (*model.Announcement, error) {
	var a model.Announcement
	if err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Author, &a.Pinned, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnnouncementPostgres) Create(ctx context.Context, a *model.Announcement) (*model.Announcement, error) {
	q := `
		INSERT INTO announcements (id, title, body, author, pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + announcementColumns
	row := r.db.QueryRowContext(ctx, q, a.ID, a.Title, a.Body, a.Author, a.Pinned, a.CreatedAt, a.UpdatedAt)
	return scanAnnouncement(row)
}

func (r *AnnouncementPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Announcement], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&total); err != nil {
		return nil, err
	}

	// Pinned notices float to the top regardless of age.
	q := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY pinned DESC, created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Announcement]{Items: items, Total: total}, nil
}

func (r *AnnouncementPostgres) Update(ctx context.Context, a *model.Announcement) (*model.Announcement, error) {
	q := `
		UPDATE announcements SET title = $2, body = $3, pinned = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + announcementColumns
	return scanAnnouncement(r.db.QueryRowContext(ctx, q, a.ID, a.Title, a.Body, a.Pinned))
}

func (r *AnnouncementPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}

// EventPostgres is a PostgreSQL implementation of repository.EventRepository.
type EventPostgres struct {
	db *sql.DB
}

func NewEventPostgres(db *sql.DB) *EventPostgres {
	return &EventPostgres{db: db}
}

var _ repository.EventRepository = (*EventPostgres)(nil)

const eventColumns = `id, title, description, starts_at, ends_at, created_by, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventPostgres) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	q := `
		INSERT INTO events (id, title, description, starts_at, ends_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + eventColumns
	row := r.db.QueryRowContext(ctx, q, e.ID, e.Title, e.Description, e.StartsAt, e.EndsAt, e.CreatedBy, e.CreatedAt)
	return scanEvent(row)
}

func (r *EventPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Event], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Event]{Items: items, Total: total}, nil
}

func (r *EventPostgres) Update(ctx context.Context, e *model.Event) (*model.Event, error) {
	q := `
		UPDATE events SET title = $2, description = $3, starts_at = $4, ends_at = $5
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.db.QueryRowContext(ctx, q, e.ID, e.Title, e.Description, e.StartsAt, e.EndsAt))
}

func (r *EventPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// TeacherPostgres is a PostgreSQL implementation of repository.TeacherRepository.
type TeacherPostgres struct {
	db *sql.DB
}

func NewTeacherPostgres(db *sql.DB) *TeacherPostgres {
	return &TeacherPostgres{db: db}
}

var _ repository.TeacherRepository = (*TeacherPostgres)(nil)

const teacherColumns = `id, full_name, email, phone, position, cover_letter, status, created_at`

func scanTeacher(row interface{ Scan(...any) error }) (*model.TeacherApplicant, error) {
	var (
		t      model.TeacherApplicant
		status string
	)
	if err := row.Scan(&t.ID, &t.FullName, &t.Email, &t.Phone, &t.Position, &t.CoverLetter, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TeacherStatus(status)
	return &t, nil
}

func (r *TeacherPostgres) Create(ctx context.Context, t *model.TeacherApplicant) (*model.TeacherApplicant, error) {
	q := `
		INSERT INTO teacher_applicants (id, full_name, email, phone, position, cover_letter, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + teacherColumns
	row := r.db.QueryRowContext(ctx, q,
		t.ID, t.FullName, t.Email, t.Phone, t.Position, t.CoverLetter, string(t.Status), t.CreatedAt)
	return scanTeacher(row)
}

func (r *TeacherPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.TeacherApplicant], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teacher_applicants`).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + teacherColumns + ` FROM teacher_applicants ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.TeacherApplicant, 0)
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.TeacherApplicant]{Items: items, Total: total}, nil
}

func (r *TeacherPostgres) UpdateStatus(ctx context.Context, id string, status model.TeacherStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE teacher_applicants SET status = $2 WHERE id = $1`, id, string(status))
	return err
}
