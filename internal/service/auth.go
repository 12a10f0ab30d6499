package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"enrollapi/internal/auth"
	"enrollapi/internal/config"
	"enrollapi/internal/mail"
	"enrollapi/internal/model"
	"enrollapi/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	revokedKeyPrefix = "auth:revoked:"
	otpKeyPrefix     = "auth:otp:"
)

// LoginResult carries the signed token and its subject.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// CreateUserInput holds the fields for a new portal account.
type CreateUserInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// UserListResult is the service-level DTO for paginated accounts.
type UserListResult struct {
	Items []model.User `json:"data"`
	Total int          `json:"total"`
}

// AuthService covers portal authentication and account management: password
// login, token verification with a redis revocation set, logout, one-time
// codes over mail, and the admin-only user CRUD.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Verify parses a bearer token and rejects revoked or expired ones.
	Verify(ctx context.Context, tokenStr string) (*auth.Claims, error)

	// Logout revokes the token's jti until its natural expiry.
	Logout(ctx context.Context, tokenStr string) error

	// RequestOTP stores a short-lived one-time code and mails it. It
	// reports success even for unknown emails.
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*LoginResult, error)

	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id string, upd repository.UserUpdate) (*model.User, error)
	ListUsers(ctx context.Context, limit, offset int) (*UserListResult, error)
	DisableUser(ctx context.Context, id string) error
}

type authService struct {
	users  repository.UserRepository
	rdb    *redis.Client
	mailer mail.Mailer
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, mailer mail.Mailer, cfg config.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		users:  users,
		rdb:    rdb,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *authService) tokenTTL() time.Duration {
	return time.Duration(s.cfg.TokenTTLMin) * time.Minute
}

func (s *authService) issueToken(user *model.User) (*LoginResult, error) {
	ttl := s.tokenTTL()
	token, err := auth.GenerateToken(s.cfg.JWTSecret, user.ID, user.Email, string(user.Role), ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
		User:      user,
	}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return s.issueToken(user)
}

func (s *authService) Verify(ctx context.Context, tokenStr string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(s.cfg.JWTSecret, tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if n > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *authService) Logout(ctx context.Context, tokenStr string) error {
	claims, err := auth.ValidateToken(s.cfg.JWTSecret, tokenStr)
	if err != nil {
		// An unparsable token has nothing to revoke.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil
		}
		return ErrInvalidToken
	}

	// Keep the revocation marker exactly until the token would expire on
	// its own.
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKeyPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("store revocation: %w", err)
	}
	return nil
}

// otpCode draws a 6-digit code from crypto/rand.
func otpCode() string {
	max := big.NewInt(1000000)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		v = big.NewInt(0)
	}
	return fmt.Sprintf("%06d", v.Int64())
}

func (s *authService) RequestOTP(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown address: do nothing, report nothing.
			return nil
		}
		return err
	}
	if !user.Active {
		return nil
	}

	code := otpCode()
	ttl := time.Duration(s.cfg.OTPTTLSec) * time.Second
	if err := s.rdb.Set(ctx, otpKeyPrefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	msg := mail.Message{
		To:      email,
		Subject: "Your sign-in code",
		Body:    fmt.Sprintf("Your one-time code is %s. It expires in %d minutes.\n", code, int(ttl.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("otp mail failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	stored, err := s.rdb.Get(ctx, otpKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("read otp: %w", err)
	}
	if code == "" || stored != code {
		return nil, ErrInvalidOTP
	}

	// Single-use: burn the code before issuing anything.
	if err := s.rdb.Del(ctx, otpKeyPrefix+email).Err(); err != nil {
		return nil, fmt.Errorf("delete otp: %w", err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return s.issueToken(user)
}

func (s *authService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	role := model.Role(in.Role)
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return s.users.Create(ctx, &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *authService) UpdateUser(ctx context.Context, id string, upd repository.UserUpdate) (*model.User, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) ListUsers(ctx context.Context, limit, offset int) (*UserListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.users.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &UserListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *authService) DisableUser(ctx context.Context, id string) error {
	active := false
	_, err := s.UpdateUser(ctx, id, repository.UserUpdate{Active: &active})
	return err
}
