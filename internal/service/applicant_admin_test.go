package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mailMocks "enrollapi/internal/mail/mocks"
	"enrollapi/internal/model"
	"enrollapi/internal/repository"
	repoMocks "enrollapi/internal/repository/mocks"
	storeMocks "enrollapi/internal/storage/mocks"
)

func newAdminService(t *testing.T) (ApplicantAdminService, *repoMocks.MockApplicantRepository, *repoMocks.MockStudentRepository, *storeMocks.MockStorage, *mailMocks.MockMailer) {
	t.Helper()
	mRepo := new(repoMocks.MockApplicantRepository)
	mStudents := new(repoMocks.MockStudentRepository)
	mStore := new(storeMocks.MockStorage)
	mMailer := new(mailMocks.MockMailer)
	svc := NewApplicantAdminService(mRepo, mStudents, mStore, mMailer, zap.NewNop())
	return svc, mRepo, mStudents, mStore, mMailer
}

func submittedApplicant(id string) *model.Applicant {
	a := pendingApplicant(id)
	a.Status = model.StatusSubmitted
	a.Email = "juan@example.com"
	a.GradeLevel = "7"
	return a
}

func TestApplicantAdminService_List(t *testing.T) {
	ctx := context.Background()
	svc, mRepo, _, _, _ := newAdminService(t)

	mRepo.On("List", ctx, repository.ApplicantFilter{
		FormType: "jhs",
		Status:   "submitted",
		Page:     repository.PageQuery{Limit: 10, Offset: 0},
	}).Return(&repository.PageResult[model.Applicant]{
		Items: []model.Applicant{*submittedApplicant("a1")},
		Total: 1,
	}, nil)

	// Defaults kick in for limit<=0 / offset<0.
	res, err := svc.List(ctx, "jhs", "submitted", 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
}

func TestApplicantAdminService_UpdateRequirements(t *testing.T) {
	ctx := context.Background()

	t.Run("checks declared slots", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("FindByID", ctx, "a1").Return(submittedApplicant("a1"), nil)
		mRepo.On("UpdateRequirements", ctx, "a1", mock.MatchedBy(func(reqs map[string]model.Requirement) bool {
			return reqs["psa"].Checked && !reqs["form137"].Checked
		})).Return(nil)

		applicant, err := svc.UpdateRequirements(ctx, "a1", map[string]bool{"psa": true})
		require.NoError(t, err)
		assert.True(t, applicant.Requirements["psa"].Checked)
	})

	t.Run("rejects unknown slot", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("FindByID", ctx, "a1").Return(submittedApplicant("a1"), nil)

		_, err := svc.UpdateRequirements(ctx, "a1", map[string]bool{"diploma": true})
		assert.ErrorIs(t, err, ErrUnknownSlot)
		mRepo.AssertNotCalled(t, "UpdateRequirements")
	})
}

func TestApplicantAdminService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("archive", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("UpdateStatus", ctx, "a1", model.StatusSubmitted, model.StatusArchived).Return(true, nil)

		assert.NoError(t, svc.Archive(ctx, "a1"))
	})

	t.Run("restore", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("UpdateStatus", ctx, "a1", model.StatusArchived, model.StatusSubmitted).Return(true, nil)

		assert.NoError(t, svc.Restore(ctx, "a1"))
	})

	t.Run("wrong starting status", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("UpdateStatus", ctx, "a1", model.StatusSubmitted, model.StatusArchived).Return(false, nil)
		mRepo.On("FindByID", ctx, "a1").Return(pendingApplicant("a1"), nil)

		assert.ErrorIs(t, svc.Archive(ctx, "a1"), ErrInvalidTransition)
	})

	t.Run("missing application", func(t *testing.T) {
		svc, mRepo, _, _, _ := newAdminService(t)
		mRepo.On("UpdateStatus", ctx, "ghost", model.StatusSubmitted, model.StatusArchived).Return(false, nil)
		mRepo.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.Archive(ctx, "ghost"), ErrApplicationNotFound)
	})
}

func TestApplicantAdminService_Enroll(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, mRepo, mStudents, _, mMailer := newAdminService(t)
		applicant := submittedApplicant("a1")

		mRepo.On("FindByID", ctx, "a1").Return(applicant, nil)
		mRepo.On("UpdateStatus", ctx, "a1", model.StatusSubmitted, model.StatusEnrolled).Return(true, nil)
		mStudents.On("Create", ctx, mock.MatchedBy(func(s *model.Student) bool {
			return s.ApplicantID == "a1" &&
				s.FullName == applicant.FullName() &&
				s.FormType == applicant.FormType &&
				s.StudentNumber != ""
		})).Return(&model.Student{ID: "st1", ApplicantID: "a1", StudentNumber: "S2026-ABCDEF01"}, nil)
		mMailer.On("Send", ctx, mock.Anything).Return(nil)

		student, err := svc.Enroll(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "st1", student.ID)

		mRepo.AssertExpectations(t)
		mStudents.AssertExpectations(t)
	})

	t.Run("mail failure does not fail enrollment", func(t *testing.T) {
		svc, mRepo, mStudents, _, mMailer := newAdminService(t)

		mRepo.On("FindByID", ctx, "a1").Return(submittedApplicant("a1"), nil)
		mRepo.On("UpdateStatus", ctx, "a1", model.StatusSubmitted, model.StatusEnrolled).Return(true, nil)
		mStudents.On("Create", ctx, mock.Anything).Return(&model.Student{ID: "st1"}, nil)
		mMailer.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))

		_, err := svc.Enroll(ctx, "a1")
		assert.NoError(t, err)
	})

	t.Run("not submitted", func(t *testing.T) {
		svc, mRepo, mStudents, _, _ := newAdminService(t)
		mRepo.On("FindByID", ctx, "a1").Return(pendingApplicant("a1"), nil)

		_, err := svc.Enroll(ctx, "a1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		mStudents.AssertNotCalled(t, "Create")
	})
}

func TestApplicantAdminService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes objects then row", func(t *testing.T) {
		svc, mRepo, _, mStore, _ := newAdminService(t)
		applicant := submittedApplicant("a1")
		applicant.Documents = []model.Document{
			{Slot: "psa", FilePath: "studentFiles/a1/psa_1_aaaaaa.pdf"},
			{Slot: "form137", FilePath: "studentFiles/a1/form137_1_bbbbbb.pdf"},
		}

		mRepo.On("FindByID", ctx, "a1").Return(applicant, nil)
		mStore.On("Delete", ctx, "studentFiles/a1/psa_1_aaaaaa.pdf").Return(nil)
		mStore.On("Delete", ctx, "studentFiles/a1/form137_1_bbbbbb.pdf").Return(nil)
		mRepo.On("Delete", ctx, "a1").Return(nil)

		require.NoError(t, svc.Delete(ctx, "a1"))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("object delete failure is non-fatal", func(t *testing.T) {
		svc, mRepo, _, mStore, _ := newAdminService(t)
		applicant := submittedApplicant("a1")
		applicant.Documents = []model.Document{{Slot: "psa", FilePath: "studentFiles/a1/psa_1_aaaaaa.pdf"}}

		mRepo.On("FindByID", ctx, "a1").Return(applicant, nil)
		mStore.On("Delete", ctx, mock.Anything).Return(errors.New("minio down"))
		mRepo.On("Delete", ctx, "a1").Return(nil)

		assert.NoError(t, svc.Delete(ctx, "a1"))
	})
}
