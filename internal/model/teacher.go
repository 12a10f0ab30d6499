package model

import "time"

// TeacherStatus is the review state of a teacher job application.
type TeacherStatus string

const (
	TeacherStatusPending  TeacherStatus = "pending"
	TeacherStatusReviewed TeacherStatus = "reviewed"
)

// TeacherApplicant is a teaching position application. Unlike enrollee
// applications it carries no document uploads.
type TeacherApplicant struct {
	ID          string        `json:"id"`
	FullName    string        `json:"fullName"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	Position    string        `json:"position"`
	CoverLetter string        `json:"coverLetter"`
	Status      TeacherStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}
