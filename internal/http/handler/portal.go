package handler

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"enrollapi/internal/http/middleware"
	"enrollapi/internal/model"
	"enrollapi/internal/repository"
)

// The portal CRUD surfaces are thin enough to sit directly on their
// repositories; only the applicant lifecycle warrants a service layer.

// ListStudents returns paginated enrolled students.
func ListStudents(repo repository.StudentRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := repo.List(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

type announcementRequest struct {
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body" validate:"required"`
	Pinned bool   `json:"pinned"`
}

// ListAnnouncements returns paginated announcements, pinned first.
func ListAnnouncements(repo repository.AnnouncementRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := repo.List(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// CreateAnnouncement posts a new announcement authored by the caller.
func CreateAnnouncement(repo repository.AnnouncementRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req announcementRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		author := ""
		if claims := middleware.ClaimsFromCtx(c); claims != nil {
			author = claims.Email
		}

		now := time.Now().UTC()
		ann, err := repo.Create(c.UserContext(), &model.Announcement{
			ID:        uuid.NewString(),
			Title:     req.Title,
			Body:      req.Body,
			Author:    author,
			Pinned:    req.Pinned,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(ann)
	}
}

// UpdateAnnouncement replaces an announcement's content.
func UpdateAnnouncement(repo repository.AnnouncementRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req announcementRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		ann, err := repo.Update(c.UserContext(), &model.Announcement{
			ID:        c.Params("id"),
			Title:     req.Title,
			Body:      req.Body,
			Pinned:    req.Pinned,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "announcement not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(ann)
	}
}

// DeleteAnnouncement removes an announcement.
func DeleteAnnouncement(repo repository.AnnouncementRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := repo.Delete(c.UserContext(), c.Params("id")); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "announcement not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type eventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	EndsAt      time.Time `json:"endsAt"`
}

// ListEvents returns paginated calendar events in start order.
func ListEvents(repo repository.EventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := repo.List(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// CreateEvent adds a calendar event.
func CreateEvent(repo repository.EventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req eventRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		createdBy := ""
		if claims := middleware.ClaimsFromCtx(c); claims != nil {
			createdBy = claims.UserID
		}

		ev, err := repo.Create(c.UserContext(), &model.Event{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
			CreatedBy:   createdBy,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

// UpdateEvent replaces an event's content.
func UpdateEvent(repo repository.EventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req eventRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		ev, err := repo.Update(c.UserContext(), &model.Event{
			ID:          c.Params("id"),
			Title:       req.Title,
			Description: req.Description,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "event not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(ev)
	}
}

// DeleteEvent removes an event.
func DeleteEvent(repo repository.EventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := repo.Delete(c.UserContext(), c.Params("id")); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "event not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type teacherApplyRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	Position    string `json:"position" validate:"required"`
	CoverLetter string `json:"coverLetter"`
}

// ApplyTeacher accepts a public teaching position application.
func ApplyTeacher(repo repository.TeacherRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req teacherApplyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		ta, err := repo.Create(c.UserContext(), &model.TeacherApplicant{
			ID:          uuid.NewString(),
			FullName:    req.FullName,
			Email:       req.Email,
			Phone:       req.Phone,
			Position:    req.Position,
			CoverLetter: req.CoverLetter,
			Status:      model.TeacherStatusPending,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(ta)
	}
}

// ListTeacherApplicants returns paginated teacher applications.
func ListTeacherApplicants(repo repository.TeacherRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := repo.List(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// ReviewTeacherApplicant marks an application as reviewed.
func ReviewTeacherApplicant(repo repository.TeacherRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := repo.UpdateStatus(c.UserContext(), c.Params("id"), model.TeacherStatusReviewed); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "teacher application not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}
