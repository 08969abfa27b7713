package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/response"
)

// PasswordResetHandler serves /api/password_reset.
type PasswordResetHandler struct {
	resets *services.PasswordResetService
}

func NewPasswordResetHandler(resets *services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var statusOK = gin.H{"status": "OK"}

// POST /api/password_reset/
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req resetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if _, err := h.resets.Request(requestContext(c), req.Email, services.ResetRequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, statusOK)
}

// POST /api/password_reset/validate_token/
func (h *PasswordResetHandler) ValidateToken(c *gin.Context) {
	var req resetTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.resets.Validate(requestContext(c), req.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, statusOK)
}

// POST /api/password_reset/confirm/
func (h *PasswordResetHandler) Confirm(c *gin.Context) {
	var req resetConfirmRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.resets.Confirm(requestContext(c), req.Token, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, statusOK)
}
