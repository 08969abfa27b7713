package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/response"
)

// AuthHandler exchanges credentials and refresh tokens for access tokens.
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token iauth.TokenPair `json:"token"`
	User  *models.User    `json:"user"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type refreshResponse struct {
	Access    string `json:"access"`
	ExpiresIn int    `json:"expires_in"`
}

// POST /api/users/login/
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{Token: result.Tokens, User: result.User})
}

// POST /api/token/refresh/
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	access, ttl, err := h.auth.Refresh(requestContext(c), req.Refresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, refreshResponse{Access: access, ExpiresIn: int(ttl.Seconds())})
}
