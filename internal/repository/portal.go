package repository

import (
	"context"

	"enrollapi/internal/model"
)

// StudentRepository stores enrolled students.
type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) (*model.Student, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Student], error)
}

// AnnouncementRepository stores portal announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) (*model.Announcement, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Announcement], error)
	Update(ctx context.Context, a *model.Announcement) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
}

// EventRepository stores calendar events.
type EventRepository interface {
	Create(ctx context.Context, e *model.Event) (*model.Event, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Event], error)
	Update(ctx context.Context, e *model.Event) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// TeacherRepository stores teacher job applications.
type TeacherRepository interface {
	Create(ctx context.Context, t *model.TeacherApplicant) (*model.TeacherApplicant, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.TeacherApplicant], error)
	UpdateStatus(ctx context.Context, id string, status model.TeacherStatus) error
}
