package handler

import (
	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/mail"
)

type sendMailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
	IsHTML  bool   `json:"isHtml"`
}

// SendMail relays an admin-composed message through the portal's SMTP
// account.
func SendMail(mailer mail.Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sendMailRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		msg := mail.Message{
			To:      req.To,
			Subject: req.Subject,
			Body:    req.Body,
			IsHTML:  req.IsHTML,
		}
		if err := mailer.Send(c.UserContext(), msg); err != nil {
			return writeError(c, fiber.StatusBadGateway, "MAIL_FAILED", "mail relay failed")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
	}
}
