package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"enrollapi/internal/http/middleware"
	"enrollapi/internal/mail"
	"enrollapi/internal/repository"
	"enrollapi/internal/service"
)

// Deps bundles everything the route table needs.
type Deps struct {
	DB            *sql.DB
	Redis         *redis.Client
	Enrollees     service.EnrolleeService
	Applicants    service.ApplicantAdminService
	Auth          service.AuthService
	Mailer        mail.Mailer
	Students      repository.StudentRepository
	Announcements repository.AnnouncementRepository
	Events        repository.EventRepository
	Teachers      repository.TeacherRepository
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Redis))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	// Public: enrollee application workflow.
	api.Post("/enrollees", CreateEnrollee(d.Enrollees))
	api.Post("/enrollees/:id/upload", UploadEnrolleeFile(d.Enrollees))
	api.Post("/enrollees/:id/finalize", FinalizeEnrollee(d.Enrollees))

	// Public: landing page content and teacher applications.
	api.Get("/announcements", ListAnnouncements(d.Announcements))
	api.Get("/events", ListEvents(d.Events))
	api.Post("/teachers/apply", ApplyTeacher(d.Teachers))

	// Auth.
	authGroup := api.Group("/auth")
	authGroup.Post("/login", Login(d.Auth))
	authGroup.Post("/logout", Logout(d.Auth))
	authGroup.Post("/otp/request", RequestOTP(d.Auth))
	authGroup.Post("/otp/verify", VerifyOTP(d.Auth))

	// Admin portal: any authenticated staff account.
	admin := api.Group("/admin", middleware.RequireAuth(d.Auth))

	admin.Get("/applicants", ListApplicants(d.Applicants))
	admin.Get("/applicants/:id", GetApplicant(d.Applicants))
	admin.Patch("/applicants/:id/requirements", PatchApplicantRequirements(d.Applicants))
	admin.Post("/applicants/:id/archive", ArchiveApplicant(d.Applicants))
	admin.Post("/applicants/:id/restore", RestoreApplicant(d.Applicants))
	admin.Post("/applicants/:id/enroll", EnrollApplicant(d.Applicants))
	admin.Delete("/applicants/:id", DeleteApplicant(d.Applicants))

	admin.Get("/students", ListStudents(d.Students))

	admin.Get("/announcements", ListAnnouncements(d.Announcements))
	admin.Post("/announcements", CreateAnnouncement(d.Announcements))
	admin.Put("/announcements/:id", UpdateAnnouncement(d.Announcements))
	admin.Delete("/announcements/:id", DeleteAnnouncement(d.Announcements))

	admin.Get("/events", ListEvents(d.Events))
	admin.Post("/events", CreateEvent(d.Events))
	admin.Put("/events/:id", UpdateEvent(d.Events))
	admin.Delete("/events/:id", DeleteEvent(d.Events))

	admin.Get("/teachers", ListTeacherApplicants(d.Teachers))
	admin.Post("/teachers/:id/review", ReviewTeacherApplicant(d.Teachers))

	admin.Post("/mail", SendMail(d.Mailer))

	// User management is admin-only.
	users := admin.Group("/users", middleware.RequireRole("admin"))
	users.Get("/", ListUsers(d.Auth))
	users.Post("/", CreateUser(d.Auth))
	users.Patch("/:id", UpdateUser(d.Auth))
	users.Post("/:id/disable", DisableUser(d.Auth))
}
