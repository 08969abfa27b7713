package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/response"
	appValidator "github.com/charlesng35/accounts/pkg/validator"
)

// UserHandler serves the account endpoints under /api/users.
type UserHandler struct {
	users        *services.UserService
	verification *services.EmailVerificationService
}

func NewUserHandler(users *services.UserService, verification *services.EmailVerificationService) *UserHandler {
	return &UserHandler{users: users, verification: verification}
}

type signupRequest struct {
	FirstName   string  `json:"first_name" validate:"max=150"`
	LastName    string  `json:"last_name" validate:"max=150"`
	Email       string  `json:"email" validate:"required,email,max=254"`
	PhoneNumber *string `json:"phone_number"`
	Password    string  `json:"password" validate:"required"`

	// PasswordConfirmation may also be sent as password2.
	PasswordConfirmation string `json:"password_confirmation" validate:"required_without=Password2"`
	Password2            string `json:"password2"`
}

type updateUserRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	PhoneNumber *string `json:"phone_number"`
	OldPassword *string `json:"old_password"`
	Password    *string `json:"password"`
}

type updateProfileRequest struct {
	Gender    *string `json:"gender" validate:"omitempty,max=1"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	BirthDate *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

type userListResponse struct {
	Count   int64         `json:"count"`
	Results []models.User `json:"results"`
}

func (r signupRequest) confirmation() string {
	if r.PasswordConfirmation != "" {
		return r.PasswordConfirmation
	}
	return r.Password2
}

// POST /api/users/signup/
func (h *UserHandler) Signup(c *gin.Context) {
	var body signupRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if !validPhone(c, body.PhoneNumber) {
		return
	}

	user, err := h.users.Signup(requestContext(c), services.SignupInput{
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Email:           body.Email,
		PhoneNumber:     body.PhoneNumber,
		Password:        body.Password,
		PasswordConfirm: body.confirmation(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// GET /api/users/
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "page_size", services.DefaultPageSize)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = services.DefaultPageSize
	}
	if perPage > services.MaxPageSize {
		perPage = services.MaxPageSize
	}

	users, total, err := h.users.List(requestContext(c), services.ListUsersOptions{Page: page, PageSize: perPage})
	if err != nil {
		response.Error(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	response.SuccessWithMeta(c, http.StatusOK, userListResponse{Count: total, Results: users}, response.NewMeta(page, perPage, total))
}

// GET /api/users/:id/
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT|PATCH /api/users/:id/
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if !validPhone(c, body.PhoneNumber) {
		return
	}

	user, err := h.users.Update(requestContext(c), c.Param("id"), services.UpdateUserInput{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Email:       body.Email,
		PhoneNumber: body.PhoneNumber,
		OldPassword: body.OldPassword,
		Password:    body.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id/
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GET /api/users/:id/verify/?token=
func (h *UserHandler) Verify(c *gin.Context) {
	user, err := h.verification.Verify(requestContext(c), c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/:id/profile/
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var body updateProfileRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateProfileInput{Bio: body.Bio}
	if body.Gender != nil {
		gender := models.Gender(strings.ToUpper(strings.TrimSpace(*body.Gender)))
		input.Gender = &gender
	}
	if body.BirthDate != nil {
		parsed, err := time.Parse("2006-01-02", *body.BirthDate)
		if err != nil {
			response.Error(c, errors.NewFieldError("birth_date", fieldMessage(appValidator.ValidationError{Tag: "datetime"})))
			return
		}
		input.BirthDate = &parsed
	}

	profile, err := h.users.UpdateProfile(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// validPhone writes a field error and returns false when a non-blank phone number is malformed.
func validPhone(c *gin.Context, phone *string) bool {
	if phone == nil {
		return true
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" || appValidator.IsPhoneNumber(trimmed) {
		return true
	}
	response.Error(c, errors.NewFieldError("phone_number", msgPhoneFormat))
	return false
}
