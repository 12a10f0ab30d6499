package model

import "time"

// FormType identifies which admission form an application was submitted on.
type FormType string

const (
	FormTypeJHS FormType = "jhs"
	FormTypeSHS FormType = "shs"
)

// Valid reports whether the form type is one of the accepted enum values.
func (f FormType) Valid() bool {
	return f == FormTypeJHS || f == FormTypeSHS
}

// ApplicationStatus is the lifecycle state of an application record.
// The enrollee workflow only ever moves pending -> submitted; the later
// states are owned by admin review.
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusSubmitted ApplicationStatus = "submitted"
	StatusArchived  ApplicationStatus = "archived"
	StatusEnrolled  ApplicationStatus = "enrolled"
)

// StudentType distinguishes fresh applicants from returning students.
type StudentType string

const (
	StudentTypeNew       StudentType = "new"
	StudentTypeReturning StudentType = "returning"
)

// Requirement tracks whether a required document slot has been supplied.
type Requirement struct {
	Checked bool `json:"checked"`
}

// Document is one uploaded file reconciled into the application at finalize.
type Document struct {
	Slot       string    `json:"slot"`
	FileName   string    `json:"fileName"`
	FilePath   string    `json:"filePath"`
	FileURL    string    `json:"fileUrl"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Applicant is an admission application record. Applicant fields are typed
// columns rather than a free-form payload; requirements and documents are
// stored as JSONB.
type Applicant struct {
	ID             string                 `json:"id"`
	FormType       FormType               `json:"formType"`
	FirstName      string                 `json:"firstName"`
	LastName       string                 `json:"lastName"`
	Birthdate      string                 `json:"birthdate"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone"`
	GradeLevel     string                 `json:"gradeLevel"`
	StudentType    StudentType            `json:"studentType"`
	PreviousSchool string                 `json:"previousSchool,omitempty"`
	Requirements   map[string]Requirement `json:"requirements"`
	Documents      []Document             `json:"documents"`
	Status         ApplicationStatus      `json:"status"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// FullName joins the applicant's name parts for display and mail.
func (a *Applicant) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

var requirementSlots = map[FormType][]string{
	FormTypeJHS: {"psa", "form137", "goodMoral", "idPhoto"},
	FormTypeSHS: {"psa", "form137", "form138", "goodMoral", "idPhoto"},
}

// RequirementTemplate returns the all-unchecked requirements map for a form
// type. Finalize and admin review are the only writers of the checked flags.
func RequirementTemplate(ft FormType) map[string]Requirement {
	slots := requirementSlots[ft]
	reqs := make(map[string]Requirement, len(slots))
	for _, s := range slots {
		reqs[s] = Requirement{}
	}
	return reqs
}
