package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"enrollapi/internal/config"
	"enrollapi/internal/mail"
	mailMocks "enrollapi/internal/mail/mocks"
	"enrollapi/internal/model"
	"enrollapi/internal/repository"
	repoMocks "enrollapi/internal/repository/mocks"
)

func newAuthService(t *testing.T) (AuthService, *repoMocks.MockUserRepository, *mailMocks.MockMailer, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mUsers := new(repoMocks.MockUserRepository)
	mMailer := new(mailMocks.MockMailer)
	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenTTLMin: 60, OTPTTLSec: 300}
	svc := NewAuthService(mUsers, rdb, mMailer, cfg, zap.NewNop())
	return svc, mUsers, mMailer, mr
}

func activeUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{
		ID:           "u1",
		Email:        "staff@school.test",
		PasswordHash: string(hash),
		DisplayName:  "Staff",
		Role:         model.RoleStaff,
		Active:       true,
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		user := activeUser(t, "s3cret")
		mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

		res, err := svc.Login(ctx, user.Email, "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, user.ID, res.User.ID)
		assert.Greater(t, res.ExpiresAt, time.Now().UnixMilli())

		claims, err := svc.Verify(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, string(user.Role), claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		user := activeUser(t, "s3cret")
		mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

		_, err := svc.Login(ctx, user.Email, "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		mUsers.On("FindByEmail", ctx, "ghost@school.test").Return(nil, sql.ErrNoRows)

		_, err := svc.Login(ctx, "ghost@school.test", "x")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		user := activeUser(t, "s3cret")
		user.Active = false
		mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

		_, err := svc.Login(ctx, user.Email, "s3cret")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, mUsers, _, _ := newAuthService(t)

	user := activeUser(t, "s3cret")
	mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

	res, err := svc.Login(ctx, user.Email, "s3cret")
	require.NoError(t, err)

	// Token verifies before logout and is rejected after.
	_, err = svc.Verify(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))

	_, err = svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// A second token for the same user is unaffected.
	res2, err := svc.Login(ctx, user.Email, "s3cret")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, res2.Token)
	assert.NoError(t, err)
}

func TestAuthService_Verify_Garbage(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	_, err := svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_OTP(t *testing.T) {
	ctx := context.Background()

	t.Run("request stores code and mails it", func(t *testing.T) {
		svc, mUsers, mMailer, mr := newAuthService(t)
		user := activeUser(t, "s3cret")
		mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

		var sentBody string
		mMailer.On("Send", ctx, mock.MatchedBy(func(msg mail.Message) bool {
			sentBody = msg.Body
			return msg.To == user.Email
		})).Return(nil)

		require.NoError(t, svc.RequestOTP(ctx, user.Email))

		code, err := mr.Get("auth:otp:" + user.Email)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Contains(t, sentBody, code)

		ttl := mr.TTL("auth:otp:" + user.Email)
		assert.InDelta(t, (5 * time.Minute).Seconds(), ttl.Seconds(), 5)
	})

	t.Run("request for unknown email is silent", func(t *testing.T) {
		svc, mUsers, mMailer, _ := newAuthService(t)
		mUsers.On("FindByEmail", ctx, "ghost@school.test").Return(nil, sql.ErrNoRows)

		assert.NoError(t, svc.RequestOTP(ctx, "ghost@school.test"))
		mMailer.AssertNotCalled(t, "Send")
	})

	t.Run("verify issues a token and burns the code", func(t *testing.T) {
		svc, mUsers, _, mr := newAuthService(t)
		user := activeUser(t, "s3cret")
		mUsers.On("FindByEmail", ctx, user.Email).Return(user, nil)

		require.NoError(t, mr.Set("auth:otp:"+user.Email, "123456"))

		res, err := svc.VerifyOTP(ctx, user.Email, "123456")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)

		// Single-use.
		_, err = svc.VerifyOTP(ctx, user.Email, "123456")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("wrong code", func(t *testing.T) {
		svc, _, _, mr := newAuthService(t)
		require.NoError(t, mr.Set("auth:otp:"+"staff@school.test", "123456"))

		_, err := svc.VerifyOTP(ctx, "staff@school.test", "000000")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("expired code", func(t *testing.T) {
		svc, _, _, _ := newAuthService(t)

		_, err := svc.VerifyOTP(ctx, "staff@school.test", "123456")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})
}

func TestAuthService_Users(t *testing.T) {
	ctx := context.Background()

	t.Run("create hashes the password", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		mUsers.On("FindByEmail", ctx, "new@school.test").Return(nil, sql.ErrNoRows)
		mUsers.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Email == "new@school.test" &&
				u.Role == model.RoleStaff &&
				u.Active &&
				u.PasswordHash != "pw123456" &&
				strings.HasPrefix(u.PasswordHash, "$2")
		})).Return(&model.User{ID: "u2"}, nil)

		user, err := svc.CreateUser(ctx, CreateUserInput{
			Email: "new@school.test", Password: "pw123456", DisplayName: "New", Role: "staff",
		})
		require.NoError(t, err)
		assert.Equal(t, "u2", user.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		mUsers.On("FindByEmail", ctx, "dup@school.test").Return(activeUser(t, "x"), nil)

		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "dup@school.test", Password: "x", Role: "staff"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, _, _, _ := newAuthService(t)

		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "x@school.test", Password: "x", Role: "superuser"})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("disable", func(t *testing.T) {
		svc, mUsers, _, _ := newAuthService(t)
		mUsers.On("Update", ctx, "u1", mock.MatchedBy(func(upd repository.UserUpdate) bool {
			return upd.Active != nil && !*upd.Active && upd.Role == nil && upd.DisplayName == nil
		})).Return(&model.User{ID: "u1", Active: false}, nil)

		assert.NoError(t, svc.DisableUser(ctx, "u1"))
	})
}
