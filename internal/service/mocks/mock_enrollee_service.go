package mocks

import (
	"context"
	"io"

	"enrollapi/internal/model"
	"enrollapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockEnrolleeService struct {
	mock.Mock
}

func (m *MockEnrolleeService) Create(ctx context.Context, in service.CreateApplicationInput) (*service.CreateApplicationResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateApplicationResult), args.Error(1)
}

func (m *MockEnrolleeService) Upload(ctx context.Context, studentID, slot, fileName, contentType string, r io.Reader, size int64) (*model.UploadedFile, error) {
	args := m.Called(ctx, studentID, slot, fileName, contentType, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedFile), args.Error(1)
}

func (m *MockEnrolleeService) Finalize(ctx context.Context, studentID string, clientFiles []model.UploadedFile) (*service.FinalizeResult, error) {
	args := m.Called(ctx, studentID, clientFiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FinalizeResult), args.Error(1)
}
