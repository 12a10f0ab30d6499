package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/model"
	"enrollapi/internal/repository"
	"enrollapi/internal/service"
)

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=admin staff"`
}

type updateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role" validate:"omitempty,oneof=admin staff"`
	Active      *bool   `json:"active"`
}

func userError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return writeError(c, fiber.StatusConflict, "EMAIL_TAKEN", "email already registered")
	case errors.Is(err, service.ErrInvalidRole):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ROLE", "invalid role")
	case errors.Is(err, service.ErrUserNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ListUsers returns paginated portal accounts.
func ListUsers(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := svc.ListUsers(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// CreateUser registers a new portal account.
func CreateUser(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createUserRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		user, err := svc.CreateUser(c.UserContext(), service.CreateUserInput{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Role:        req.Role,
		})
		if err != nil {
			return userError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// UpdateUser patches the allow-listed account fields.
func UpdateUser(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		upd := repository.UserUpdate{
			DisplayName: req.DisplayName,
			Active:      req.Active,
		}
		if req.Role != nil {
			role := model.Role(*req.Role)
			upd.Role = &role
		}

		user, err := svc.UpdateUser(c.UserContext(), c.Params("id"), upd)
		if err != nil {
			return userError(c, err)
		}
		return c.JSON(user)
	}
}

// DisableUser deactivates an account without deleting it.
func DisableUser(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DisableUser(c.UserContext(), c.Params("id")); err != nil {
			return userError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}
