package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/metrics"
	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/repository"
	"github.com/admissions-portal/portal/internal/utils"
)

// AdminCredentials is the configured administrator login. Admin login
// is disabled when Email or Password is empty.
type AdminCredentials struct {
	Email    string
	Password string
	UserID   string
}

func (a AdminCredentials) enabled() bool { return a.Email != "" && a.Password != "" }

type registration struct {
	Email    string `form:"reg_email" validate:"required,email,max=255"`
	Password string `form:"reg_password" validate:"required,max=128"`
}

// Accounts registers applicants and resolves logins to identities.
type Accounts struct {
	store     repository.Store
	passwords utils.Passwords
	admin     AdminCredentials
	log       *zap.Logger

	now func() time.Time
}

func NewAccounts(store repository.Store, passwords utils.Passwords, admin AdminCredentials, log *zap.Logger) *Accounts {
	if admin.UserID == "" {
		admin.UserID = "ADMIN_001"
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	return &Accounts{store: store, passwords: passwords, admin: admin, log: log, now: time.Now}
}

// Register creates an applicant account. A duplicate email is an
// apperrors.ErrConflict and writes nothing.
func (s *Accounts) Register(ctx context.Context, email, password string) (model.User, error) {
	in := registration{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	if err := check(in); err != nil {
		return model.User{}, err
	}
	if s.admin.enabled() && in.Email == s.admin.Email {
		return model.User{}, apperrors.Conflict("email already registered")
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return model.User{}, apperrors.Persistence("hash password", err)
	}
	now := s.now().UTC()
	u, err := s.store.CreateUser(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       model.RoleApplicant,
		CreatedAt:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		if apperrors.IsRetryable(err) {
			s.log.Error("register user failed", zap.Error(err))
		}
		return model.User{}, err
	}
	metrics.Registrations.Inc()
	s.log.Info("user registered", zap.String("user_id", u.UserID))
	return u, nil
}

// Authenticate checks the configured admin credentials first and then
// the stored users. Failed logins are apperrors.ErrAuthorization.
func (s *Accounts) Authenticate(ctx context.Context, email, password string) (auth.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return auth.Anonymous, apperrors.Unauthorized("email and password are required")
	}
	if s.admin.enabled() && email == s.admin.Email &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1 {
		return auth.Identity{UserID: s.admin.UserID, Role: model.RoleAdmin}, nil
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return auth.Anonymous, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		s.log.Error("login lookup failed", zap.Error(err))
		return auth.Anonymous, err
	}
	if !s.passwords.Verify(u.PasswordHash, password) {
		return auth.Anonymous, apperrors.Unauthorized("invalid email or password")
	}
	if u.RoleID != model.RoleAdmin && u.RoleID != model.RoleApplicant {
		return auth.Anonymous, apperrors.Unauthorized("account has no portal role")
	}
	return auth.Identity{UserID: u.UserID, Role: u.RoleID}, nil
}
