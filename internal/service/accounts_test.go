package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/utils"
)

func newAccounts(t *testing.T, scheme string, admin AdminCredentials) *Accounts {
	t.Helper()
	store, _ := newCSVStore(t)
	return NewAccounts(store, utils.NewPasswords(scheme, 4), admin, zap.NewNop())
}

func TestRegisterThenLogin(t *testing.T) {
	for _, scheme := range []string{utils.SchemePlain, utils.SchemeBcrypt} {
		t.Run(scheme, func(t *testing.T) {
			svc := newAccounts(t, scheme, AdminCredentials{})
			ctx := context.Background()

			u, err := svc.Register(ctx, "Student@Uni.edu ", "s3cret")
			require.NoError(t, err)
			assert.Equal(t, "U1001", u.UserID)
			assert.Equal(t, model.RoleApplicant, u.RoleID)

			id, err := svc.Authenticate(ctx, "student@uni.edu", "s3cret")
			require.NoError(t, err)
			assert.Equal(t, "U1001", id.UserID)
			assert.True(t, id.IsApplicant())

			_, err = svc.Authenticate(ctx, "student@uni.edu", "wrong")
			assert.ErrorIs(t, err, apperrors.ErrAuthorization)
		})
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newAccounts(t, utils.SchemePlain, AdminCredentials{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "dup@uni.edu", "a")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "DUP@uni.edu", "b")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// the original password still works, so nothing was overwritten
	_, err = svc.Authenticate(ctx, "dup@uni.edu", "a")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "dup@uni.edu", "b")
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAccounts(t, utils.SchemePlain, AdminCredentials{})

	_, err := svc.Register(context.Background(), "not-an-email", "pw")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.Register(context.Background(), "ok@uni.edu", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAdminLogin(t *testing.T) {
	svc := newAccounts(t, utils.SchemePlain, AdminCredentials{Email: "Admin@MM.edu", Password: "admin123"})
	ctx := context.Background()

	id, err := svc.Authenticate(ctx, "admin@mm.edu", "admin123")
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, "ADMIN_001", id.UserID)

	_, err = svc.Authenticate(ctx, "admin@mm.edu", "nope")
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	_, err = svc.Register(ctx, "admin@mm.edu", "x")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAdminLoginDisabledWithoutCredentials(t *testing.T) {
	svc := newAccounts(t, utils.SchemePlain, AdminCredentials{Email: "admin@mm.edu"})

	_, err := svc.Authenticate(context.Background(), "admin@mm.edu", "")
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	_, err = svc.Authenticate(context.Background(), "admin@mm.edu", "admin123")
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}
