package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
)

func newUserService(t *testing.T) (*UserService, *recordingQueue) {
	t.Helper()
	db := openTestDB(t)
	queue := &recordingQueue{}
	verification, err := NewEmailVerificationService(db, newSigner(t), queue, WithVerificationBaseURL("https://accounts.example.com/"))
	require.NoError(t, err)
	svc, err := NewUserService(db, verification)
	require.NoError(t, err)
	return svc, queue
}

func validSignup() SignupInput {
	return SignupInput{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Email:           "Grace@Example.com",
		Password:        strongPassword,
		PasswordConfirm: strongPassword,
	}
}

func TestUserServiceSignup(t *testing.T) {
	svc, queue := newUserService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	require.Equal(t, "grace@example.com", user.Email)
	require.Nil(t, user.PhoneNumber)
	require.False(t, user.IsVerified)
	require.False(t, user.IsAdmin)
	require.False(t, user.IsPremium)
	require.True(t, crypto.VerifyPassword(user.Password, strongPassword))

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	require.Equal(t, notifications.KindVerification, job.Kind)
	require.Equal(t, []string{"grace@example.com"}, job.Message.To)
	require.Contains(t, job.Message.Body, "https://accounts.example.com/api/users/"+user.ID+"/verify/?token=")
}

func TestUserServiceSignupValidation(t *testing.T) {
	svc, queue := newUserService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	queue.jobs = nil

	_, err = svc.Signup(ctx, validSignup())
	requireFieldError(t, err, "email", "This field must be unique.")

	input := validSignup()
	input.Email = "other@example.com"
	input.PasswordConfirm = "something-else"
	_, err = svc.Signup(ctx, input)
	requireFieldError(t, err, apperrors.NonFieldErrors, "Passwords do not match.")

	input = validSignup()
	input.Email = "weak@example.com"
	input.Password, input.PasswordConfirm = "12345678", "12345678"
	_, err = svc.Signup(ctx, input)
	requireFieldError(t, err, apperrors.NonFieldErrors, "This password is too common.")
	requireFieldError(t, err, apperrors.NonFieldErrors, "This password is entirely numeric.")

	var count int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.Empty(t, queue.jobs)
}

func TestUserServiceSignupPhoneUniqueness(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	input := validSignup()
	input.PhoneNumber = strPtr("+4915112345678")
	user, err := svc.Signup(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, user.PhoneNumber)
	require.Equal(t, "+4915112345678", *user.PhoneNumber)

	input.Email = "second@example.com"
	_, err = svc.Signup(ctx, input)
	requireFieldError(t, err, "phone_number", "This field must be unique.")

	// Blank phone numbers are stored as NULL and never collide.
	input.PhoneNumber = strPtr("  ")
	_, err = svc.Signup(ctx, input)
	require.NoError(t, err)
	input.Email = "third@example.com"
	_, err = svc.Signup(ctx, input)
	require.NoError(t, err)
}

func TestUserServiceListOrdersByCreation(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		user := createUser(t, svc.db, userFixture{Email: email})
		require.NoError(t, svc.db.Model(user).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	users, total, err := svc.List(ctx, ListUsersOptions{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	require.Equal(t, "c@example.com", users[0].Email)
	require.Equal(t, "a@example.com", users[1].Email)

	users, _, err = svc.List(ctx, ListUsersOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "b@example.com", users[0].Email)
}

func TestUserServiceUpdate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	owner := createUser(t, svc.db, userFixture{Email: "owner@example.com", Phone: "+3312345678", Verified: true})
	other := createUser(t, svc.db, userFixture{Email: "other@example.com", Phone: "+3387654321"})

	_, err := svc.Update(ctx, owner.ID, UpdateUserInput{Email: strPtr("OTHER@example.com")})
	requireFieldError(t, err, "email", "Email is taken")

	_, err = svc.Update(ctx, owner.ID, UpdateUserInput{PhoneNumber: strPtr(*other.PhoneNumber)})
	requireFieldError(t, err, "phone_number", "Phone number is taken")

	_, err = svc.Update(ctx, owner.ID, UpdateUserInput{Password: strPtr("N3w-Harbour-Light")})
	requireFieldError(t, err, "old_password", "Old password is required to set a new one")

	_, err = svc.Update(ctx, owner.ID, UpdateUserInput{Password: strPtr("N3w-Harbour-Light"), OldPassword: strPtr("wrong")})
	requireFieldError(t, err, "old_password", "Wrong password")

	_, err = svc.Update(ctx, owner.ID, UpdateUserInput{Password: strPtr("123"), OldPassword: strPtr(strongPassword)})
	requireFieldError(t, err, "password", "This password is entirely numeric.")

	// Keeping one's own email and phone is not a conflict.
	updated, err := svc.Update(ctx, owner.ID, UpdateUserInput{
		Email:       strPtr("owner@example.com"),
		PhoneNumber: strPtr("+3312345678"),
		FirstName:   strPtr(" Owen "),
		Password:    strPtr("N3w-Harbour-Light"),
		OldPassword: strPtr(strongPassword),
	})
	require.NoError(t, err)
	require.Equal(t, "Owen", updated.FirstName)
	require.True(t, crypto.VerifyPassword(updated.Password, "N3w-Harbour-Light"))
	require.True(t, updated.IsVerified)
	require.False(t, updated.IsAdmin)

	cleared, err := svc.Update(ctx, owner.ID, UpdateUserInput{PhoneNumber: strPtr("")})
	require.NoError(t, err)
	require.Nil(t, cleared.PhoneNumber)

	_, err = svc.Update(ctx, "missing", UpdateUserInput{})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceDeleteRemovesDependents(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user := createUser(t, svc.db, userFixture{Email: "gone@example.com", Verified: true})
	require.NoError(t, svc.db.Create(&models.Profile{UserID: user.ID}).Error)
	require.NoError(t, svc.db.Create(&models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: crypto.HashToken("tok"),
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, svc.Delete(ctx, user.ID))
	require.ErrorIs(t, svc.Delete(ctx, user.ID), ErrUserNotFound)

	var profiles, tokens int64
	require.NoError(t, svc.db.Model(&models.Profile{}).Count(&profiles).Error)
	require.NoError(t, svc.db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	require.Zero(t, profiles)
	require.Zero(t, tokens)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	pending := createUser(t, svc.db, userFixture{Email: "pending@example.com"})
	_, err := svc.UpdateProfile(ctx, pending.ID, UpdateProfileInput{Bio: strPtr("hi")})
	require.ErrorIs(t, err, ErrProfileNotFound)

	verified := createUser(t, svc.db, userFixture{Email: "verified@example.com", Verified: true})
	require.NoError(t, svc.db.Create(&models.Profile{UserID: verified.ID}).Error)

	gender := models.GenderNonBinary
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	profile, err := svc.UpdateProfile(ctx, verified.ID, UpdateProfileInput{
		Gender:    &gender,
		Bio:       strPtr("  Compiler enthusiast "),
		BirthDate: &birth,
	})
	require.NoError(t, err)
	require.Equal(t, models.GenderNonBinary, profile.Gender)
	require.Equal(t, "Compiler enthusiast", profile.Bio)
	require.NotNil(t, profile.BirthDate)

	bad := models.Gender("X")
	_, err = svc.UpdateProfile(ctx, verified.ID, UpdateProfileInput{Gender: &bad})
	requireFieldError(t, err, "gender", `"X" is not a valid choice.`)
}

func TestUserServiceLoadActor(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	admin := createUser(t, svc.db, userFixture{Email: "root@example.com", Admin: true, Verified: true})
	actor, err := svc.LoadActor(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, admin.ID, actor.UserID)
	require.True(t, actor.IsAdmin)
	require.True(t, actor.IsVerified)

	require.NoError(t, svc.db.Model(admin).Update("is_active", false).Error)
	actor, err = svc.LoadActor(ctx, admin.ID)
	require.NoError(t, err)
	require.Nil(t, actor)

	actor, err = svc.LoadActor(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, actor)
}
