package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"enrollapi/internal/model"
	"enrollapi/internal/repository"
	"enrollapi/internal/session"
	"enrollapi/internal/storage"
)

var (
	ErrInvalidFormType     = errors.New("invalid form type")
	ErrSessionNotFound     = errors.New("upload session not found")
	ErrSlotNotAllowed      = errors.New("slot not allowed for this session")
	ErrSessionExpired      = errors.New("upload session expired")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadySubmitted    = errors.New("application already submitted")
)

// RequestedFile declares one document slot the client intends to upload.
type RequestedFile struct {
	Slot string `json:"slot"`
	Name string `json:"name"`
}

// CreateApplicationInput carries the typed applicant fields plus the
// requested upload slots.
type CreateApplicationInput struct {
	FormType       string
	FirstName      string
	LastName       string
	Birthdate      string
	Email          string
	Phone          string
	GradeLevel     string
	StudentType    string
	PreviousSchool string
	RequestedFiles []RequestedFile
}

// CreateApplicationResult is returned to the client after create. The upload
// tokens are the session's allowed paths; the client treats them as opaque
// per-slot destinations.
type CreateApplicationResult struct {
	StudentID    string                        `json:"studentId"`
	UploadTokens map[string]model.UploadTarget `json:"uploadTokens"`
	ExpiresAt    int64                         `json:"expiresAt"`
}

// FinalizeResult reports what was reconciled into the application record.
type FinalizeResult struct {
	StudentID     string   `json:"studentId"`
	UploadedSlots []string `json:"uploadedSlots"`
	NumFiles      int      `json:"numFiles"`
}

// EnrolleeService drives the three-step application workflow:
// create -> per-slot uploads -> finalize.
type EnrolleeService interface {
	// Create writes the application record with a pending status and an
	// all-unchecked requirements template, and opens a time-boxed upload
	// session with pre-assigned storage paths for the requested slots.
	Create(ctx context.Context, in CreateApplicationInput) (*CreateApplicationResult, error)

	// Upload streams one file to the pre-assigned path for a declared slot.
	// Uploads only touch the session, never the application record, so no
	// partial state is visible before finalize. Re-uploading a slot
	// overwrites the object.
	Upload(ctx context.Context, studentID, slot, fileName, contentType string, r io.Reader, size int64) (*model.UploadedFile, error)

	// Finalize merges recorded uploads with any client-supplied records
	// (client winning per slot), checks off the matching requirements,
	// persists the documents and flips status pending -> submitted exactly
	// once. The session is deleted best-effort afterward.
	Finalize(ctx context.Context, studentID string, clientFiles []model.UploadedFile) (*FinalizeResult, error)
}

type enrolleeService struct {
	repo       repository.ApplicantRepository
	sessions   *session.Store
	store      storage.Storage
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewEnrolleeService constructs the enrollee workflow service.
func NewEnrolleeService(repo repository.ApplicantRepository, sessions *session.Store, store storage.Storage, sessionTTL time.Duration, logger *zap.Logger) EnrolleeService {
	return &enrolleeService{
		repo:       repo,
		sessions:   sessions,
		store:      store,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

const pathAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randSuffix returns n random characters. Together with the millisecond
// timestamp it makes storage paths collision-free and unguessable without
// the session.
func randSuffix(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(pathAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			b[i] = pathAlphabet[0]
			continue
		}
		b[i] = pathAlphabet[v.Int64()]
	}
	return string(b)
}

func storagePath(applicationID, slot, fileName string, now time.Time) string {
	ext := filepath.Ext(fileName)
	return fmt.Sprintf("studentFiles/%s/%s_%d_%s%s", applicationID, slot, now.UnixMilli(), randSuffix(6), ext)
}

func (s *enrolleeService) Create(ctx context.Context, in CreateApplicationInput) (*CreateApplicationResult, error) {
	formType := model.FormType(in.FormType)
	if !formType.Valid() {
		return nil, ErrInvalidFormType
	}

	studentType := model.StudentType(in.StudentType)
	if studentType != model.StudentTypeReturning {
		studentType = model.StudentTypeNew
	}

	now := time.Now().UTC()
	applicant := &model.Applicant{
		ID:             uuid.NewString(),
		FormType:       formType,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Birthdate:      in.Birthdate,
		Email:          in.Email,
		Phone:          in.Phone,
		GradeLevel:     in.GradeLevel,
		StudentType:    studentType,
		PreviousSchool: in.PreviousSchool,
		Requirements:   model.RequirementTemplate(formType),
		Documents:      []model.Document{},
		Status:         model.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, err := s.repo.Create(ctx, applicant)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	allowed := make(map[string]model.UploadTarget, len(in.RequestedFiles))
	for _, rf := range in.RequestedFiles {
		if rf.Slot == "" {
			continue
		}
		allowed[rf.Slot] = model.UploadTarget{
			Path:     storagePath(stored.ID, rf.Slot, rf.Name, now),
			FileName: rf.Name,
		}
	}

	sess := &model.UploadSession{
		StudentID:    stored.ID,
		FormType:     formType,
		AllowedPaths: allowed,
		ExpiresAt:    now.Add(s.sessionTTL).UnixMilli(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		// The application row already exists; an application without a
		// session cannot be completed, which is an accepted gap rather
		// than something we roll back.
		s.logger.Error("session write failed after application create",
			zap.String("studentId", stored.ID),
			zap.Error(err))
		return nil, fmt.Errorf("create upload session: %w", err)
	}

	return &CreateApplicationResult{
		StudentID:    stored.ID,
		UploadTokens: allowed,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

func (s *enrolleeService) Upload(ctx context.Context, studentID, slot, fileName, contentType string, r io.Reader, size int64) (*model.UploadedFile, error) {
	sess, err := s.sessions.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	target, ok := sess.AllowedPaths[slot]
	if !ok {
		return nil, ErrSlotNotAllowed
	}
	if sess.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if fileName == "" {
		fileName = target.FileName
	}

	// Upsert: re-uploading the same slot overwrites the object, so a
	// client-side "re-select file" never leaks duplicates.
	info, err := s.store.Put(ctx, target.Path, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": fileName,
			"slot":              slot,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec := model.UploadedFile{
		Slot:       slot,
		FileName:   fileName,
		Size:       info.Size,
		Path:       target.Path,
		PublicURL:  s.store.PublicURL(target.Path),
		UploadedAt: time.Now().UTC(),
	}
	if err := s.sessions.AppendFile(ctx, studentID, rec); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	return &rec, nil
}

func (s *enrolleeService) Finalize(ctx context.Context, studentID string, clientFiles []model.UploadedFile) (*FinalizeResult, error) {
	applicant, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if applicant.Status != model.StatusPending {
		return nil, ErrAlreadySubmitted
	}

	var (
		sessFiles   []model.UploadedFile
		sessExpired = true
	)
	sess, err := s.sessions.Get(ctx, studentID)
	switch {
	case err == nil:
		sessExpired = sess.Expired(time.Now())
		sessFiles, err = s.sessions.Files(ctx, studentID)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, session.ErrNotFound):
		// A lost session is treated like an expired one: the client's own
		// upload confirmations are the only evidence left.
	default:
		return nil, err
	}

	merged, slots := mergeUploads(sessFiles, clientFiles)
	if sessExpired && len(merged) == 0 {
		// Expiry only blocks sessions that never produced anything;
		// an already-started session may still be completed.
		return nil, ErrSessionExpired
	}

	reqs := make(map[string]model.Requirement, len(applicant.Requirements))
	for slot, req := range applicant.Requirements {
		reqs[slot] = req
	}

	docs := make([]model.Document, 0, len(merged))
	for _, slot := range slots {
		f := merged[slot]
		docs = append(docs, model.Document{
			Slot:       f.Slot,
			FileName:   f.FileName,
			FilePath:   f.Path,
			FileURL:    f.PublicURL,
			Size:       f.Size,
			UploadedAt: f.UploadedAt,
		})
		reqs[slot] = model.Requirement{Checked: true}
	}

	updated, err := s.repo.Finalize(ctx, studentID, docs, reqs)
	if err != nil {
		return nil, fmt.Errorf("finalize application: %w", err)
	}
	if !updated {
		// Raced with another finalize; the guarded UPDATE did not match.
		return nil, ErrAlreadySubmitted
	}

	if err := s.sessions.Delete(ctx, studentID); err != nil {
		s.logger.Warn("session delete after finalize failed",
			zap.String("studentId", studentID),
			zap.Error(err))
	}

	return &FinalizeResult{
		StudentID:     studentID,
		UploadedSlots: slots,
		NumFiles:      len(docs),
	}, nil
}

// mergeUploads combines session-recorded uploads with client-supplied
// records. Client entries win per slot, covering a session append that did
// not fully persist even though the client holds an upload confirmation.
// Slot order is session order first, then new client-only slots.
func mergeUploads(sessFiles, clientFiles []model.UploadedFile) (map[string]model.UploadedFile, []string) {
	merged := make(map[string]model.UploadedFile)
	var slots []string
	for _, f := range sessFiles {
		if f.Slot == "" {
			continue
		}
		if _, seen := merged[f.Slot]; !seen {
			slots = append(slots, f.Slot)
		}
		merged[f.Slot] = f
	}
	for _, f := range clientFiles {
		if f.Slot == "" {
			continue
		}
		if _, seen := merged[f.Slot]; !seen {
			slots = append(slots, f.Slot)
		}
		merged[f.Slot] = f
	}
	return merged, slots
}
