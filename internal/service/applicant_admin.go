package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"enrollapi/internal/mail"
	"enrollapi/internal/model"
	"enrollapi/internal/repository"
	"enrollapi/internal/storage"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUnknownSlot       = errors.New("unknown requirement slot")
)

// ApplicantListResult is the service-level DTO for paginated applications.
type ApplicantListResult struct {
	Items []model.Applicant `json:"data"`
	Total int               `json:"total"`
}

// ApplicantAdminService covers the reviewer-side use cases: browsing
// applications, checking requirements, and moving them through the
// submitted/archived/enrolled lifecycle.
type ApplicantAdminService interface {
	List(ctx context.Context, formType, status string, limit, offset int) (*ApplicantListResult, error)
	Get(ctx context.Context, id string) (*model.Applicant, error)

	// UpdateRequirements applies the reviewer's checked flags. Slots not
	// present in the application are rejected.
	UpdateRequirements(ctx context.Context, id string, checked map[string]bool) (*model.Applicant, error)

	// Archive and Restore move an application between submitted and
	// archived. Any other starting status fails the transition.
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error

	// Enroll promotes a submitted application to enrolled and creates the
	// student record. The notification mail is best-effort.
	Enroll(ctx context.Context, id string) (*model.Student, error)

	// Delete removes the application and best-effort deletes its stored
	// objects.
	Delete(ctx context.Context, id string) error
}

type applicantAdminService struct {
	repo     repository.ApplicantRepository
	students repository.StudentRepository
	store    storage.Storage
	mailer   mail.Mailer
	logger   *zap.Logger
}

// NewApplicantAdminService constructs a new ApplicantAdminService.
func NewApplicantAdminService(repo repository.ApplicantRepository, students repository.StudentRepository, store storage.Storage, mailer mail.Mailer, logger *zap.Logger) ApplicantAdminService {
	return &applicantAdminService{
		repo:     repo,
		students: students,
		store:    store,
		mailer:   mailer,
		logger:   logger,
	}
}

func (s *applicantAdminService) List(ctx context.Context, formType, status string, limit, offset int) (*ApplicantListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.ApplicantFilter{
		FormType: model.FormType(formType),
		Status:   model.ApplicationStatus(status),
		Page:     repository.PageQuery{Limit: limit, Offset: offset},
	})
	if err != nil {
		return nil, err
	}
	return &ApplicantListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *applicantAdminService) Get(ctx context.Context, id string) (*model.Applicant, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	applicant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return applicant, nil
}

func (s *applicantAdminService) UpdateRequirements(ctx context.Context, id string, checked map[string]bool) (*model.Applicant, error) {
	applicant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reqs := make(map[string]model.Requirement, len(applicant.Requirements))
	for slot, req := range applicant.Requirements {
		reqs[slot] = req
	}
	for slot, flag := range checked {
		if _, ok := reqs[slot]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
		}
		reqs[slot] = model.Requirement{Checked: flag}
	}

	if err := s.repo.UpdateRequirements(ctx, id, reqs); err != nil {
		return nil, fmt.Errorf("update requirements: %w", err)
	}
	applicant.Requirements = reqs
	return applicant, nil
}

func (s *applicantAdminService) Archive(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusSubmitted, model.StatusArchived)
}

func (s *applicantAdminService) Restore(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusArchived, model.StatusSubmitted)
}

// transition runs a guarded status update; zero matched rows means the
// application either does not exist or is not in the expected status.
func (s *applicantAdminService) transition(ctx context.Context, id string, from, to model.ApplicationStatus) error {
	if id == "" {
		return ErrIDRequired
	}
	updated, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if !updated {
		if _, err := s.repo.FindByID(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return ErrApplicationNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// studentNumber builds a human-readable identifier: enrollment year plus a
// short random block.
func studentNumber(now time.Time) string {
	return fmt.Sprintf("S%d-%s", now.Year(), strings.ToUpper(strings.ReplaceAll(uuid.NewString()[:8], "-", "")))
}

func (s *applicantAdminService) Enroll(ctx context.Context, id string) (*model.Student, error) {
	applicant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant.Status != model.StatusSubmitted {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, model.StatusSubmitted, model.StatusEnrolled)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !updated {
		// Raced with another reviewer.
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	student, err := s.students.Create(ctx, &model.Student{
		ID:            uuid.NewString(),
		ApplicantID:   applicant.ID,
		StudentNumber: studentNumber(now),
		FormType:      applicant.FormType,
		FullName:      applicant.FullName(),
		GradeLevel:    applicant.GradeLevel,
		EnrolledAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}

	if applicant.Email != "" {
		msg := mail.Message{
			To:      applicant.Email,
			Subject: "Enrollment confirmed",
			Body: fmt.Sprintf("Hi %s,\n\nYour enrollment is confirmed. Your student number is %s.\n",
				applicant.FullName(), student.StudentNumber),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn("enrollment mail failed",
				zap.String("applicantId", applicant.ID),
				zap.Error(err))
		}
	}

	return student, nil
}

func (s *applicantAdminService) Delete(ctx context.Context, id string) error {
	applicant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	// Stored objects go first, best-effort.
	for _, doc := range applicant.Documents {
		if doc.FilePath == "" {
			continue
		}
		if err := s.store.Delete(ctx, doc.FilePath); err != nil {
			s.logger.Warn("object delete failed",
				zap.String("applicantId", id),
				zap.String("path", doc.FilePath),
				zap.Error(err))
		}
	}

	return s.repo.Delete(ctx, id)
}
