package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/permissions"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	msgFieldUnique        = "This field must be unique."
	msgPasswordsMismatch  = "Passwords do not match."
	msgEmailTaken         = "Email is taken"
	msgPhoneTaken         = "Phone number is taken"
	msgOldPasswordMissing = "Old password is required to set a new one"
	msgOldPasswordWrong   = "Wrong password"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrProfileNotFound is returned when editing the profile of an unverified user.
	ErrProfileNotFound = apperrors.New("PROFILE_NOT_FOUND", "Profile not found", http.StatusNotFound)
)

// SignupInput carries the fields accepted on public registration.
type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     *string
	Password        string
	PasswordConfirm string
}

// UpdateUserInput enumerates mutable user attributes. Role flags are intentionally absent.
type UpdateUserInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	OldPassword *string
	Password    *string
}

// UpdateProfileInput enumerates mutable profile attributes.
type UpdateProfileInput struct {
	Gender    *models.Gender
	Bio       *string
	BirthDate *time.Time
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
}

// UserService manages the account lifecycle.
type UserService struct {
	db           *gorm.DB
	verification *EmailVerificationService
}

// NewUserService constructs a UserService. The verification service is optional; without it
// no verification email is sent after signup.
func NewUserService(db *gorm.DB, verification *EmailVerificationService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, verification: verification}, nil
}

// Signup registers an unverified, non-privileged account and enqueues its verification email.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := models.NormalizeEmail(input.Email)
	phone := normalisePhone(input.PhoneNumber)

	fields := apperrors.FieldErrors{}
	if taken, err := s.emailTaken(ctx, email, ""); err != nil {
		return nil, err
	} else if taken {
		fields.Add("email", msgFieldUnique)
	}
	if phone != nil {
		if taken, err := s.phoneTaken(ctx, *phone, ""); err != nil {
			return nil, err
		} else if taken {
			fields.Add("phone_number", msgFieldUnique)
		}
	}
	if !fields.Empty() {
		return nil, apperrors.NewValidation(fields)
	}

	if input.Password != input.PasswordConfirm {
		return nil, apperrors.NewFieldError(apperrors.NonFieldErrors, msgPasswordsMismatch)
	}

	user := &models.User{
		Email:       email,
		PhoneNumber: phone,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		IsActive:    true,
	}
	if problems := ValidatePasswordStrength(input.Password, passwordAttributes(user)); len(problems) > 0 {
		return nil, apperrors.NewValidation(apperrors.FieldErrors{apperrors.NonFieldErrors: problems})
	}

	hashed, err := hashPassword(apperrors.NonFieldErrors, input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}
	user.Password = hashed

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewFieldError(s.conflictingField(ctx, err, email, phone, ""), msgFieldUnique)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	metrics.Signups.Inc()
	logger.WithModule("users").Info("user created", zap.String("user_id", user.ID))

	if s.verification != nil {
		if err := s.verification.Send(ctx, user); err != nil {
			logger.WithModule("users").Warn("verification email not queued",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return user, nil
}

// GetByID loads a user with its profile.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List returns a page of users ordered by creation time, and the total count.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := pageWindow(opts.Page, opts.PageSize)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Preload("Profile").
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update applies the permitted changes to a user. Uniqueness is checked before the password
// rules, and the new password must pass the signup strength rules.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Email != nil {
		email := models.NormalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewFieldError("email", "This field may not be blank.")
		}
		if email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.NewFieldError("email", msgEmailTaken)
			}
			updates["email"] = email
		}
	}

	if input.PhoneNumber != nil {
		phone := normalisePhone(input.PhoneNumber)
		if phone == nil {
			if user.PhoneNumber != nil {
				updates["phone_number"] = nil
			}
		} else if user.PhoneNumber == nil || *user.PhoneNumber != *phone {
			taken, err := s.phoneTaken(ctx, *phone, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.NewFieldError("phone_number", msgPhoneTaken)
			}
			updates["phone_number"] = *phone
		}
	}

	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}

	if input.Password != nil && *input.Password != "" {
		if input.OldPassword == nil || *input.OldPassword == "" {
			return nil, apperrors.NewFieldError("old_password", msgOldPasswordMissing)
		}
		if !crypto.VerifyPassword(user.Password, *input.OldPassword) {
			return nil, apperrors.NewFieldError("old_password", msgOldPasswordWrong)
		}

		attrs := passwordAttributes(user)
		if v, ok := updates["email"].(string); ok {
			attrs.Email = v
		}
		if v, ok := updates["first_name"].(string); ok {
			attrs.FirstName = v
		}
		if v, ok := updates["last_name"].(string); ok {
			attrs.LastName = v
		}
		if problems := ValidatePasswordStrength(*input.Password, attrs); len(problems) > 0 {
			return nil, apperrors.NewValidation(apperrors.FieldErrors{"password": problems})
		}

		hashed, err := hashPassword("password", *input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			email, _ := updates["email"].(string)
			var phone *string
			if v, ok := updates["phone_number"].(string); ok {
				phone = &v
			}
			if s.conflictingField(ctx, err, email, phone, user.ID) == "phone_number" {
				return nil, apperrors.NewFieldError("phone_number", msgPhoneTaken)
			}
			return nil, apperrors.NewFieldError("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	logger.WithModule("users").Info("user updated", zap.String("user_id", user.ID))

	return s.GetByID(ctx, user.ID)
}

// UpdateProfile edits the profile created at verification time.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load profile: %w", err)
	}

	updates := map[string]any{}
	if input.Gender != nil {
		if !input.Gender.Valid() {
			return nil, apperrors.NewFieldError("gender", fmt.Sprintf("%q is not a valid choice.", string(*input.Gender)))
		}
		updates["gender"] = *input.Gender
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.BirthDate != nil {
		updates["birth_date"] = datatypes.Date(*input.BirthDate)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&profile).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("user service: update profile: %w", err)
		}
		if err := s.db.WithContext(ctx).First(&profile, "id = ?", profile.ID).Error; err != nil {
			return nil, fmt.Errorf("user service: reload profile: %w", err)
		}
	}

	return &profile, nil
}

// Delete removes a user together with its profile and reset tokens.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("user service: delete reset tokens: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return fmt.Errorf("user service: delete profile: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return fmt.Errorf("user service: delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithModule("users").Info("user deleted", zap.String("user_id", id))
	return nil
}

// LoadActor resolves the identity used by the access policy. Inactive or missing accounts yield nil.
func (s *UserService) LoadActor(ctx context.Context, userID string) (*permissions.Actor, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Select("id", "is_admin", "is_verified", "is_active").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load actor: %w", err)
	}
	if !user.IsActive {
		return nil, nil
	}
	return &permissions.Actor{
		UserID:     user.ID,
		IsAdmin:    user.IsAdmin,
		IsVerified: user.IsVerified,
	}, nil
}

func (s *UserService) emailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return s.exists(ctx, "email = ?", email, excludeID)
}

func (s *UserService) phoneTaken(ctx context.Context, phone, excludeID string) (bool, error) {
	return s.exists(ctx, "phone_number = ?", phone, excludeID)
}

// conflictingField picks the column a failed write collided on. When the driver error does not
// name the index, the candidate values are looked up again; email is the fallback.
func (s *UserService) conflictingField(ctx context.Context, err error, email string, phone *string, excludeID string) string {
	if field := uniqueViolationField(err); field != "" {
		return field
	}
	if phone != nil {
		if taken, lookupErr := s.phoneTaken(ctx, *phone, excludeID); lookupErr == nil && taken {
			return "phone_number"
		}
	}
	if email != "" {
		if taken, lookupErr := s.emailTaken(ctx, email, excludeID); lookupErr == nil && taken {
			return "email"
		}
	}
	return "email"
}

func (s *UserService) exists(ctx context.Context, cond, value, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where(cond, value)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("user service: check uniqueness: %w", err)
	}
	return count > 0, nil
}
