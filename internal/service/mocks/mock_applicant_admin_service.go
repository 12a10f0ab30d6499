package mocks

import (
	"context"

	"enrollapi/internal/model"
	"enrollapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockApplicantAdminService struct {
	mock.Mock
}

func (m *MockApplicantAdminService) List(ctx context.Context, formType, status string, limit, offset int) (*service.ApplicantListResult, error) {
	args := m.Called(ctx, formType, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ApplicantListResult), args.Error(1)
}

func (m *MockApplicantAdminService) Get(ctx context.Context, id string) (*model.Applicant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Applicant), args.Error(1)
}

func (m *MockApplicantAdminService) UpdateRequirements(ctx context.Context, id string, checked map[string]bool) (*model.Applicant, error) {
	args := m.Called(ctx, id, checked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Applicant), args.Error(1)
}

func (m *MockApplicantAdminService) Archive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockApplicantAdminService) Restore(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockApplicantAdminService) Enroll(ctx context.Context, id string) (*model.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockApplicantAdminService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
