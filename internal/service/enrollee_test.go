package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"enrollapi/internal/model"
	repoMocks "enrollapi/internal/repository/mocks"
	"enrollapi/internal/session"
	"enrollapi/internal/storage"
	storeMocks "enrollapi/internal/storage/mocks"
)

func setupSessions(t *testing.T) *session.Store {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return session.NewStore(rdb)
}

func newTestService(t *testing.T) (EnrolleeService, *repoMocks.MockApplicantRepository, *storeMocks.MockStorage, *session.Store) {
	mRepo := new(repoMocks.MockApplicantRepository)
	mStore := new(storeMocks.MockStorage)
	sessions := setupSessions(t)
	svc := NewEnrolleeService(mRepo, sessions, mStore, time.Hour, zap.NewNop())
	return svc, mRepo, mStore, sessions
}

var pathPattern = regexp.MustCompile(`^studentFiles/[^/]+/[a-zA-Z0-9]+_\d+_[a-z0-9]{6}(\.[A-Za-z0-9]+)?$`)

func TestEnrolleeService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed paths match requested slots", func(t *testing.T) {
		for _, formType := range []string{"jhs", "shs"} {
			svc, mRepo, _, sessions := newTestService(t)

			stored := &model.Applicant{ID: "app-" + formType, FormType: model.FormType(formType), Status: model.StatusPending}
			mRepo.On("Create", ctx, mock.MatchedBy(func(a *model.Applicant) bool {
				return a.Status == model.StatusPending && string(a.FormType) == formType
			})).Return(stored, nil)

			res, err := svc.Create(ctx, CreateApplicationInput{
				FormType:  formType,
				FirstName: "Juan",
				LastName:  "Dela Cruz",
				RequestedFiles: []RequestedFile{
					{Slot: "psa", Name: "psa.pdf"},
					{Slot: "form137", Name: "form 137.pdf"},
				},
			})
			require.NoError(t, err)

			assert.Len(t, res.UploadTokens, 2)
			assert.Contains(t, res.UploadTokens, "psa")
			assert.Contains(t, res.UploadTokens, "form137")
			assert.True(t, pathPattern.MatchString(res.UploadTokens["psa"].Path),
				"unexpected path %q", res.UploadTokens["psa"].Path)
			assert.True(t, strings.HasSuffix(res.UploadTokens["psa"].Path, ".pdf"))

			// The session is persisted under the new application id with
			// exactly the same allowed paths.
			sess, err := sessions.Get(ctx, res.StudentID)
			require.NoError(t, err)
			assert.Equal(t, res.UploadTokens, sess.AllowedPaths)
			assert.Equal(t, model.FormType(formType), sess.FormType)
			assert.Equal(t, res.ExpiresAt, sess.ExpiresAt)

			mRepo.AssertExpectations(t)
		}
	})

	t.Run("requirements template is all unchecked", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		var created *model.Applicant
		mRepo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*model.Applicant)
			}).
			Return(&model.Applicant{ID: "app-1"}, nil)

		_, err := svc.Create(ctx, CreateApplicationInput{FormType: "shs"})
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Len(t, created.Requirements, 5)
		for slot, req := range created.Requirements {
			assert.False(t, req.Checked, "slot %s should start unchecked", slot)
		}
		assert.Empty(t, created.Documents)
	})

	t.Run("invalid form type", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		_, err := svc.Create(ctx, CreateApplicationInput{FormType: "college"})
		assert.ErrorIs(t, err, ErrInvalidFormType)
		mRepo.AssertNotCalled(t, "Create")
	})

	t.Run("repository error", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))

		_, err := svc.Create(ctx, CreateApplicationInput{FormType: "jhs"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "create application")
	})
}

func seedSession(t *testing.T, sessions *session.Store, studentID string, expiresAt time.Time) *model.UploadSession {
	sess := &model.UploadSession{
		StudentID: studentID,
		FormType:  model.FormTypeJHS,
		AllowedPaths: map[string]model.UploadTarget{
			"psa":     {Path: "studentFiles/" + studentID + "/psa_1700000000000_abc123.pdf", FileName: "psa.pdf"},
			"form137": {Path: "studentFiles/" + studentID + "/form137_1700000000000_def456.pdf", FileName: "form137.pdf"},
		},
		ExpiresAt: expiresAt.UnixMilli(),
	}
	require.NoError(t, sessions.Create(context.Background(), sess))
	return sess
}

func TestEnrolleeService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, _, mStore, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-1", time.Now().Add(time.Hour))
		path := sess.AllowedPaths["psa"].Path

		r := strings.NewReader("pdf-bytes")
		mStore.On("Put", ctx, path, r, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.Size == 9 && opt.ContentType == "application/pdf"
		})).Return(storage.ObjectInfo{Key: path, Size: 9, ContentType: "application/pdf"}, nil)
		mStore.On("PublicURL", path).Return("http://minio/uploads/" + path)

		rec, err := svc.Upload(ctx, "student-1", "psa", "psa.pdf", "application/pdf", r, 9)
		require.NoError(t, err)

		assert.Equal(t, "psa", rec.Slot)
		assert.Equal(t, "psa.pdf", rec.FileName)
		assert.Equal(t, int64(9), rec.Size)
		assert.Equal(t, path, rec.Path)
		assert.Equal(t, "http://minio/uploads/"+path, rec.PublicURL)

		// The upload is recorded on the session, not the application.
		files, err := sessions.Files(ctx, "student-1")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, *rec, files[0])

		mStore.AssertExpectations(t)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _, mStore, _ := newTestService(t)

		_, err := svc.Upload(ctx, "ghost", "psa", "psa.pdf", "", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		mStore.AssertNotCalled(t, "Put")
	})

	t.Run("undeclared slot", func(t *testing.T) {
		svc, _, mStore, sessions := newTestService(t)
		seedSession(t, sessions, "student-2", time.Now().Add(time.Hour))

		_, err := svc.Upload(ctx, "student-2", "goodMoral", "gm.pdf", "", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, ErrSlotNotAllowed)
		mStore.AssertNotCalled(t, "Put")
	})

	t.Run("expired session", func(t *testing.T) {
		svc, _, mStore, sessions := newTestService(t)
		seedSession(t, sessions, "student-3", time.Now().Add(-time.Minute))

		_, err := svc.Upload(ctx, "student-3", "psa", "psa.pdf", "", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, ErrSessionExpired)
		mStore.AssertNotCalled(t, "Put")
	})

	t.Run("storage error", func(t *testing.T) {
		svc, _, mStore, sessions := newTestService(t)
		seedSession(t, sessions, "student-4", time.Now().Add(time.Hour))

		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("storage fail"))

		_, err := svc.Upload(ctx, "student-4", "psa", "psa.pdf", "", strings.NewReader("x"), 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "upload to storage")

		// Nothing recorded for the failed attempt.
		files, err := sessions.Files(ctx, "student-4")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func pendingApplicant(id string) *model.Applicant {
	return &model.Applicant{
		ID:           id,
		FormType:     model.FormTypeJHS,
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		Requirements: model.RequirementTemplate(model.FormTypeJHS),
		Documents:    []model.Document{},
		Status:       model.StatusPending,
	}
}

func TestEnrolleeService_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("single uploaded slot with empty client files", func(t *testing.T) {
		svc, mRepo, mStore, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-1", time.Now().Add(time.Hour))
		uploaded := model.UploadedFile{
			Slot:      "psa",
			FileName:  "psa.pdf",
			Size:      10240,
			Path:      sess.AllowedPaths["psa"].Path,
			PublicURL: "http://minio/uploads/" + sess.AllowedPaths["psa"].Path,
		}
		require.NoError(t, sessions.AppendFile(ctx, "student-1", uploaded))

		mRepo.On("FindByID", ctx, "student-1").Return(pendingApplicant("student-1"), nil)
		mRepo.On("Finalize", ctx, "student-1",
			mock.MatchedBy(func(docs []model.Document) bool {
				return len(docs) == 1 &&
					docs[0].Slot == "psa" &&
					docs[0].FileName == "psa.pdf" &&
					docs[0].Size == 10240 &&
					docs[0].FilePath == uploaded.Path &&
					docs[0].FileURL == uploaded.PublicURL
			}),
			mock.MatchedBy(func(reqs map[string]model.Requirement) bool {
				return reqs["psa"].Checked && !reqs["form137"].Checked && !reqs["goodMoral"].Checked
			}),
		).Return(true, nil)

		res, err := svc.Finalize(ctx, "student-1", nil)
		require.NoError(t, err)

		assert.Equal(t, "student-1", res.StudentID)
		assert.Equal(t, []string{"psa"}, res.UploadedSlots)
		assert.Equal(t, 1, res.NumFiles)

		// Session is gone after finalize.
		_, err = sessions.Get(ctx, "student-1")
		assert.ErrorIs(t, err, session.ErrNotFound)

		mRepo.AssertExpectations(t)
		mStore.AssertNotCalled(t, "Put")
	})

	t.Run("partial upload leaves other slots unchecked", func(t *testing.T) {
		svc, mRepo, _, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-2", time.Now().Add(time.Hour))
		require.NoError(t, sessions.AppendFile(ctx, "student-2", model.UploadedFile{
			Slot: "form137", FileName: "form137.pdf", Path: sess.AllowedPaths["form137"].Path,
		}))

		mRepo.On("FindByID", ctx, "student-2").Return(pendingApplicant("student-2"), nil)
		mRepo.On("Finalize", ctx, "student-2", mock.Anything,
			mock.MatchedBy(func(reqs map[string]model.Requirement) bool {
				return reqs["form137"].Checked && !reqs["psa"].Checked
			}),
		).Return(true, nil)

		res, err := svc.Finalize(ctx, "student-2", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"form137"}, res.UploadedSlots)
		assert.Equal(t, 1, res.NumFiles)
	})

	t.Run("client files take precedence per slot", func(t *testing.T) {
		svc, mRepo, _, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-3", time.Now().Add(time.Hour))
		require.NoError(t, sessions.AppendFile(ctx, "student-3", model.UploadedFile{
			Slot: "psa", FileName: "stale.pdf", Size: 1, Path: sess.AllowedPaths["psa"].Path,
		}))

		clientFiles := []model.UploadedFile{
			{Slot: "psa", FileName: "fresh.pdf", Size: 999, Path: sess.AllowedPaths["psa"].Path, PublicURL: "u"},
			{Slot: "goodMoral", FileName: "gm.pdf", Size: 5, Path: "studentFiles/student-3/goodMoral_1_zzzzzz.pdf"},
		}

		mRepo.On("FindByID", ctx, "student-3").Return(pendingApplicant("student-3"), nil)
		mRepo.On("Finalize", ctx, "student-3",
			mock.MatchedBy(func(docs []model.Document) bool {
				if len(docs) != 2 {
					return false
				}
				return docs[0].Slot == "psa" && docs[0].FileName == "fresh.pdf" && docs[0].Size == 999 &&
					docs[1].Slot == "goodMoral"
			}),
			mock.MatchedBy(func(reqs map[string]model.Requirement) bool {
				return reqs["psa"].Checked && reqs["goodMoral"].Checked && !reqs["form137"].Checked
			}),
		).Return(true, nil)

		res, err := svc.Finalize(ctx, "student-3", clientFiles)
		require.NoError(t, err)
		assert.Equal(t, []string{"psa", "goodMoral"}, res.UploadedSlots)
		assert.Equal(t, 2, res.NumFiles)
	})

	t.Run("already submitted", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		submitted := pendingApplicant("student-4")
		submitted.Status = model.StatusSubmitted
		mRepo.On("FindByID", ctx, "student-4").Return(submitted, nil)

		_, err := svc.Finalize(ctx, "student-4", nil)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		mRepo.AssertNotCalled(t, "Finalize")
	})

	t.Run("unknown application", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		mRepo.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

		_, err := svc.Finalize(ctx, "ghost", nil)
		assert.ErrorIs(t, err, ErrApplicationNotFound)
	})

	t.Run("expired session with no files", func(t *testing.T) {
		svc, mRepo, _, sessions := newTestService(t)
		seedSession(t, sessions, "student-5", time.Now().Add(-time.Minute))

		mRepo.On("FindByID", ctx, "student-5").Return(pendingApplicant("student-5"), nil)

		_, err := svc.Finalize(ctx, "student-5", nil)
		assert.ErrorIs(t, err, ErrSessionExpired)
		mRepo.AssertNotCalled(t, "Finalize")
	})

	t.Run("expired session with recorded files still completes", func(t *testing.T) {
		svc, mRepo, _, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-6", time.Now().Add(-time.Minute))
		require.NoError(t, sessions.AppendFile(ctx, "student-6", model.UploadedFile{
			Slot: "psa", FileName: "psa.pdf", Path: sess.AllowedPaths["psa"].Path,
		}))

		mRepo.On("FindByID", ctx, "student-6").Return(pendingApplicant("student-6"), nil)
		mRepo.On("Finalize", ctx, "student-6", mock.Anything, mock.Anything).Return(true, nil)

		res, err := svc.Finalize(ctx, "student-6", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"psa"}, res.UploadedSlots)
	})

	t.Run("missing session with client files still completes", func(t *testing.T) {
		svc, mRepo, _, _ := newTestService(t)

		mRepo.On("FindByID", ctx, "student-7").Return(pendingApplicant("student-7"), nil)
		mRepo.On("Finalize", ctx, "student-7", mock.Anything, mock.Anything).Return(true, nil)

		res, err := svc.Finalize(ctx, "student-7", []model.UploadedFile{
			{Slot: "psa", FileName: "psa.pdf"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.NumFiles)
	})

	t.Run("guarded update lost the race", func(t *testing.T) {
		svc, mRepo, _, sessions := newTestService(t)
		sess := seedSession(t, sessions, "student-8", time.Now().Add(time.Hour))
		require.NoError(t, sessions.AppendFile(ctx, "student-8", model.UploadedFile{
			Slot: "psa", Path: sess.AllowedPaths["psa"].Path,
		}))

		mRepo.On("FindByID", ctx, "student-8").Return(pendingApplicant("student-8"), nil)
		mRepo.On("Finalize", ctx, "student-8", mock.Anything, mock.Anything).Return(false, nil)

		_, err := svc.Finalize(ctx, "student-8", nil)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
	})
}

func TestMergeUploads(t *testing.T) {
	sessFiles := []model.UploadedFile{
		{Slot: "psa", FileName: "a.pdf"},
		{Slot: "form137", FileName: "b.pdf"},
		{Slot: "psa", FileName: "a2.pdf"}, // re-upload of the same slot
	}
	clientFiles := []model.UploadedFile{
		{Slot: "form137", FileName: "client.pdf"},
		{Slot: "idPhoto", FileName: "photo.jpg"},
	}

	merged, slots := mergeUploads(sessFiles, clientFiles)

	assert.Equal(t, []string{"psa", "form137", "idPhoto"}, slots)
	assert.Equal(t, "a2.pdf", merged["psa"].FileName)
	assert.Equal(t, "client.pdf", merged["form137"].FileName)
	assert.Equal(t, "photo.jpg", merged["idPhoto"].FileName)
}

func TestRandSuffix(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s := randSuffix(6)
		assert.Len(t, s, 6)
		seen[s] = true
	}
	// Collisions across 50 draws from 36^6 would be astronomically unlikely.
	assert.Greater(t, len(seen), 45)
}
