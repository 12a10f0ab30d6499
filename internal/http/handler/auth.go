package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type otpRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// Login exchanges email/password for a signed token.
func Login(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		res, err := svc.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountDisabled) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(fiber.Map{
			"ok":        true,
			"token":     res.Token,
			"expiresAt": res.ExpiresAt,
			"user":      res.User,
		})
	}
}

// Logout revokes the presented bearer token.
func Logout(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		}

		if err := svc.Logout(c.UserContext(), strings.TrimSpace(parts[1])); err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RequestOTP mails a one-time sign-in code. The response never reveals
// whether the account exists.
func RequestOTP(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req otpRequestRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		if err := svc.RequestOTP(c.UserContext(), req.Email); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
	}
}

// VerifyOTP exchanges a one-time code for a signed token.
func VerifyOTP(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req otpVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		res, err := svc.VerifyOTP(c.UserContext(), req.Email, req.Code)
		if err != nil {
			if errors.Is(err, service.ErrInvalidOTP) || errors.Is(err, service.ErrAccountDisabled) {
				return writeError(c, fiber.StatusForbidden, "INVALID_OTP", "invalid or expired code")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(fiber.Map{
			"ok":        true,
			"token":     res.Token,
			"expiresAt": res.ExpiresAt,
			"user":      res.User,
		})
	}
}
