package repository

import (
	"context"

	"enrollapi/internal/model"
)

// ApplicantFilter narrows applicant listings. Zero values mean "no filter".
type ApplicantFilter struct {
	FormType model.FormType
	Status   model.ApplicationStatus
	Page     PageQuery
}

// ApplicantRepository defines data access for application records using SQL
// queries only. No business logic here — strictly persistence operations.
type ApplicantRepository interface {
	// Create inserts a new application record and returns the stored row.
	Create(ctx context.Context, a *model.Applicant) (*model.Applicant, error)

	// FindByID returns an application by its ID.
	FindByID(ctx context.Context, id string) (*model.Applicant, error)

	// List returns a filtered, paginated list plus a total rows count.
	List(ctx context.Context, f ApplicantFilter) (*PageResult[model.Applicant], error)

	// Finalize writes documents and requirements and flips status from
	// pending to submitted in one guarded UPDATE. The boolean reports
	// whether a row was actually updated; false means the application was
	// no longer pending.
	Finalize(ctx context.Context, id string, docs []model.Document, reqs map[string]model.Requirement) (bool, error)

	// UpdateStatus transitions status from one expected value to another.
	// The boolean reports whether a row matched the expected status.
	UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (bool, error)

	// UpdateRequirements overwrites the requirements map (admin review).
	UpdateRequirements(ctx context.Context, id string, reqs map[string]model.Requirement) error

	// Delete removes an application by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
