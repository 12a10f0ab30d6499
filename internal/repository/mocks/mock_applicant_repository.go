package mocks

import (
	"context"

	"enrollapi/internal/model"
	"enrollapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockApplicantRepository struct {
	mock.Mock
}

func (m *MockApplicantRepository) Create(ctx context.Context, a *model.Applicant) (*model.Applicant, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Applicant), args.Error(1)
}

func (m *MockApplicantRepository) FindByID(ctx context.Context, id string) (*model.Applicant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Applicant), args.Error(1)
}

func (m *MockApplicantRepository) List(ctx context.Context, f repository.ApplicantFilter) (*repository.PageResult[model.Applicant], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Applicant]), args.Error(1)
}

func (m *MockApplicantRepository) Finalize(ctx context.Context, id string, docs []model.Document, reqs map[string]model.Requirement) (bool, error) {
	args := m.Called(ctx, id, docs, reqs)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicantRepository) UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicantRepository) UpdateRequirements(ctx context.Context, id string, reqs map[string]model.Requirement) error {
	args := m.Called(ctx, id, reqs)
	return args.Error(0)
}

func (m *MockApplicantRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
