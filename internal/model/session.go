package model

import "time"

// UploadTarget is the pre-assigned storage destination for one document slot.
// The slot -> target map is the upload authorization contract: a client may
// only upload to a slot that appears in it.
type UploadTarget struct {
	Path     string `json:"path"`
	FileName string `json:"fileName"`
}

// UploadedFile records one successful upload within a session.
type UploadedFile struct {
	Slot       string    `json:"slot"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	Path       string    `json:"path"`
	PublicURL  string    `json:"publicUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadSession authorizes slot/path uploads for one in-flight application.
// AllowedPaths is fixed at creation time and never grows. The form type is
// carried here so finalize never has to guess which form the id belongs to.
type UploadSession struct {
	StudentID    string                  `json:"studentId"`
	FormType     FormType                `json:"formType"`
	AllowedPaths map[string]UploadTarget `json:"allowedPaths"`
	ExpiresAt    int64                   `json:"expiresAt"` // epoch milliseconds
}

// Expired reports whether the session deadline has passed. Expiry only gates
// new uploads; finalize may still complete a session that has recorded files.
func (s *UploadSession) Expired(now time.Time) bool {
	return now.UnixMilli() > s.ExpiresAt
}
