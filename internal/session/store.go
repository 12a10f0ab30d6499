package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"enrollapi/internal/model"
)

// Package session persists upload sessions in redis. Each session lives under
// two keys: the session document itself and an append-only list of uploaded
// file records. RPUSH gives the same atomic-append guarantee the workflow
// needs without read-modify-write on the session document.

// ErrNotFound is returned when no session exists for a student id.
var ErrNotFound = errors.New("upload session not found")

// gracePeriod extends the physical redis TTL past the logical session
// deadline. Expiry only gates new uploads; finalize must still be able to
// read a session whose deadline passed mid-flight. Redis key expiry doubles
// as garbage collection for sessions that were never finalized.
const gracePeriod = 24 * time.Hour

// Store reads and writes upload sessions.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a session store on the given redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func sessionKey(studentID string) string {
	return "enrollee:session:" + studentID
}

func filesKey(studentID string) string {
	return "enrollee:session:" + studentID + ":files"
}

// Create persists a new session. The key TTL is the logical lifetime plus
// the finalize grace period.
func (s *Store) Create(ctx context.Context, sess *model.UploadSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(time.UnixMilli(sess.ExpiresAt)) + gracePeriod
	if err := s.rdb.Set(ctx, sessionKey(sess.StudentID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get loads a session by student id. ErrNotFound when absent or already
// garbage-collected.
func (s *Store) Get(ctx context.Context, studentID string) (*model.UploadSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(studentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess model.UploadSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// AppendFile records one successful upload. The files list inherits the
// session key's remaining TTL so both expire together.
func (s *Store) AppendFile(ctx context.Context, studentID string, f model.UploadedFile) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode upload record: %w", err)
	}
	key := filesKey(studentID)
	if err := s.rdb.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("append upload record: %w", err)
	}
	if ttl, err := s.rdb.TTL(ctx, sessionKey(studentID)).Result(); err == nil && ttl > 0 {
		_ = s.rdb.Expire(ctx, key, ttl).Err()
	}
	return nil
}

// Files returns the uploads recorded so far, in upload order. A missing list
// is an empty result, not an error.
func (s *Store) Files(ctx context.Context, studentID string) ([]model.UploadedFile, error) {
	raws, err := s.rdb.LRange(ctx, filesKey(studentID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load upload records: %w", err)
	}
	files := make([]model.UploadedFile, 0, len(raws))
	for _, raw := range raws {
		var f model.UploadedFile
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("decode upload record: %w", err)
		}
		files = append(files, f)
	}
	return files, nil
}

// Delete removes the session and its file list.
func (s *Store) Delete(ctx context.Context, studentID string) error {
	return s.rdb.Del(ctx, sessionKey(studentID), filesKey(studentID)).Err()
}
