package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/service"
)

// pageParams reads limit/offset query params with teacher-portal defaults.
func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	}
	return limit, offset, nil
}

func adminApplicantError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrApplicationNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "application not found")
	case errors.Is(err, service.ErrUnknownSlot):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_SLOT", "unknown requirement slot")
	case errors.Is(err, service.ErrInvalidTransition):
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", "status transition not allowed")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ListApplicants returns paginated applications, optionally filtered by
// formType and status.
func ListApplicants(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}

		res, err := svc.List(c.UserContext(), c.Query("formType"), c.Query("status"), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetApplicant returns a single application.
func GetApplicant(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applicant, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return adminApplicantError(c, err)
		}
		return c.JSON(applicant)
	}
}

type requirementsPatchRequest struct {
	Checked map[string]bool `json:"checked" validate:"required"`
}

// PatchApplicantRequirements applies the reviewer's checked flags.
func PatchApplicantRequirements(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req requirementsPatchRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		applicant, err := svc.UpdateRequirements(c.UserContext(), c.Params("id"), req.Checked)
		if err != nil {
			return adminApplicantError(c, err)
		}
		return c.JSON(applicant)
	}
}

// ArchiveApplicant moves a submitted application to archived.
func ArchiveApplicant(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Archive(c.UserContext(), c.Params("id")); err != nil {
			return adminApplicantError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// RestoreApplicant moves an archived application back to submitted.
func RestoreApplicant(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Restore(c.UserContext(), c.Params("id")); err != nil {
			return adminApplicantError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// EnrollApplicant promotes a submitted application and creates the student
// record.
func EnrollApplicant(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		student, err := svc.Enroll(c.UserContext(), c.Params("id"))
		if err != nil {
			return adminApplicantError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(student)
	}
}

// DeleteApplicant removes an application and its stored objects.
func DeleteApplicant(svc service.ApplicantAdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return adminApplicantError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
