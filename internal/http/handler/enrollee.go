package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/model"
	"enrollapi/internal/service"
)

var validate = validator.New()

type requestedFileRequest struct {
	Slot string `json:"slot" validate:"required"`
	Name string `json:"name"`
}

type createEnrolleeRequest struct {
	FormType       string                 `json:"formType" validate:"required"`
	FirstName      string                 `json:"firstName" validate:"required"`
	LastName       string                 `json:"lastName" validate:"required"`
	Birthdate      string                 `json:"birthdate"`
	Email          string                 `json:"email" validate:"omitempty,email"`
	Phone          string                 `json:"phone"`
	GradeLevel     string                 `json:"gradeLevel"`
	StudentType    string                 `json:"studentType" validate:"omitempty,oneof=new returning"`
	PreviousSchool string                 `json:"previousSchool"`
	RequestedFiles []requestedFileRequest `json:"requestedFiles" validate:"dive"`
}

type uploadedFileRequest struct {
	Slot      string `json:"slot" validate:"required"`
	FileName  string `json:"fileName"`
	Size      int64  `json:"size"`
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
}

type finalizeEnrolleeRequest struct {
	Files []uploadedFileRequest `json:"files" validate:"dive"`
}

// enrolleeError maps enrollee service errors onto the error envelope.
func enrolleeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidFormType):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FORM_TYPE", "formType must be jhs or shs")
	case errors.Is(err, service.ErrSessionNotFound):
		return writeError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "no upload session for this id")
	case errors.Is(err, service.ErrApplicationNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "application not found")
	case errors.Is(err, service.ErrSlotNotAllowed):
		return writeError(c, fiber.StatusForbidden, "SLOT_NOT_ALLOWED", "slot was not declared at registration")
	case errors.Is(err, service.ErrSessionExpired):
		return writeError(c, fiber.StatusForbidden, "SESSION_EXPIRED", "upload session has expired")
	case errors.Is(err, service.ErrAlreadySubmitted):
		return writeError(c, fiber.StatusForbidden, "ALREADY_SUBMITTED", "application is no longer pending")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// CreateEnrollee registers a new application and opens its upload session.
func CreateEnrollee(svc service.EnrolleeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createEnrolleeRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		in := service.CreateApplicationInput{
			FormType:       req.FormType,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Birthdate:      req.Birthdate,
			Email:          req.Email,
			Phone:          req.Phone,
			GradeLevel:     req.GradeLevel,
			StudentType:    req.StudentType,
			PreviousSchool: req.PreviousSchool,
		}
		for _, rf := range req.RequestedFiles {
			in.RequestedFiles = append(in.RequestedFiles, service.RequestedFile{Slot: rf.Slot, Name: rf.Name})
		}

		res, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return enrolleeError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"ok":           true,
			"studentId":    res.StudentID,
			"uploadTokens": res.UploadTokens,
			"expiresAt":    res.ExpiresAt,
		})
	}
}

// UploadEnrolleeFile streams one multipart file into the slot's pre-assigned
// storage path.
func UploadEnrolleeFile(svc service.EnrolleeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID := c.Params("id")
		slot := c.FormValue("slot")
		if slot == "" {
			return writeError(c, fiber.StatusBadRequest, "SLOT_REQUIRED", "slot is required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")

		rec, err := svc.Upload(c.UserContext(), studentID, slot, fh.Filename, ct, f, fh.Size)
		if err != nil {
			return enrolleeError(c, err)
		}

		return c.JSON(fiber.Map{
			"ok":        true,
			"slot":      rec.Slot,
			"path":      rec.Path,
			"publicUrl": rec.PublicURL,
			"fileName":  rec.FileName,
			"size":      rec.Size,
		})
	}
}

// FinalizeEnrollee submits the application, merging session uploads with any
// client-supplied upload confirmations.
func FinalizeEnrollee(svc service.EnrolleeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID := c.Params("id")

		var req finalizeEnrolleeRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
			}
			if err := validate.Struct(req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			}
		}

		var files []model.UploadedFile
		for _, f := range req.Files {
			files = append(files, model.UploadedFile{
				Slot:      f.Slot,
				FileName:  f.FileName,
				Size:      f.Size,
				Path:      f.Path,
				PublicURL: f.PublicURL,
			})
		}

		res, err := svc.Finalize(c.UserContext(), studentID, files)
		if err != nil {
			return enrolleeError(c, err)
		}

		return c.JSON(fiber.Map{
			"ok":            true,
			"studentId":     res.StudentID,
			"uploadedSlots": res.UploadedSlots,
			"numFiles":      res.NumFiles,
		})
	}
}
