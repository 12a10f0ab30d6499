package model

import "time"

// Student is created when an admin enrolls a submitted application.
type Student struct {
	ID            string    `json:"id"`
	ApplicantID   string    `json:"applicantId"`
	StudentNumber string    `json:"studentNumber"`
	FormType      FormType  `json:"formType"`
	FullName      string    `json:"fullName"`
	GradeLevel    string    `json:"gradeLevel"`
	EnrolledAt    time.Time `json:"enrolledAt"`
}
