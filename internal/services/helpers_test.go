package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/database/testutil"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
)

const strongPassword = "Gl4cier-Kayak-91"

type recordingQueue struct {
	jobs []notifications.Job
	err  error
}

func (q *recordingQueue) Enqueue(job notifications.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func newSigner(t *testing.T) *auth.VerificationSigner {
	t.Helper()
	signer, err := auth.NewVerificationSigner("verification-secret")
	require.NoError(t, err)
	return signer
}

type userFixture struct {
	Email     string
	Password  string
	FirstName string
	Phone     string
	Verified  bool
	Admin     bool
}

func createUser(t *testing.T, db *gorm.DB, fx userFixture) *models.User {
	t.Helper()
	if fx.Password == "" {
		fx.Password = strongPassword
	}
	hashed, err := crypto.HashPassword(fx.Password)
	require.NoError(t, err)

	user := &models.User{
		Email:      fx.Email,
		FirstName:  fx.FirstName,
		Password:   hashed,
		IsVerified: fx.Verified,
		IsAdmin:    fx.Admin,
		IsActive:   true,
	}
	if fx.Phone != "" {
		phone := fx.Phone
		user.PhoneNumber = &phone
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func requireFieldError(t *testing.T, err error, field, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Fields[field], message)
}

func strPtr(v string) *string { return &v }
