package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/api"
	"github.com/charlesng35/accounts/internal/app"
	iauth "github.com/charlesng35/accounts/internal/auth"
	sharedtestutil "github.com/charlesng35/accounts/internal/database/testutil"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/crypto"
	"github.com/charlesng35/accounts/pkg/mail"
	"github.com/charlesng35/accounts/pkg/response"
)

const (
	testJWTSecret          = "test-suite-super-secret-key-32-bytes!!"
	testVerificationSecret = "test-suite-verification-secret"
	// BaseURL prefixes links in emails sent by the test environment.
	BaseURL = "https://accounts.test"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	JWT        *iauth.JWTService
	Signer     *iauth.VerificationSigner
	Mailer     *mail.MemoryMailer
	Dispatcher *notifications.Dispatcher
	Config     *app.Config
}

// NewEnv provisions a fresh handler test environment with rate limiting disabled.
func NewEnv(t *testing.T) *Env {
	return NewEnvWithConfig(t, nil)
}

// NewEnvWithConfig is NewEnv with a hook to adjust configuration before the router is built.
func NewEnvWithConfig(t *testing.T, mutate func(*app.Config)) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{BaseURL: BaseURL},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:     testJWTSecret,
				Issuer:     "test-suite",
				TTL:        time.Hour,
				RefreshTTL: 24 * time.Hour,
			},
			Verification:  app.VerificationSettings{Secret: testVerificationSecret},
			PasswordReset: app.PasswordResetSettings{TokenTTL: time.Hour},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	signer, err := iauth.NewVerificationSigner(cfg.Auth.VerificationSecret())
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	dispatcher := notifications.NewDispatcher(mailer, notifications.WithWorkers(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Close(ctx)
	})

	svc, err := api.NewServices(db, jwtSvc, cfg, mailer, dispatcher)
	require.NoError(t, err)

	rateStore := middleware.NewMemoryRateStore(time.Minute)
	t.Cleanup(rateStore.Close)

	router, err := api.NewRouter(db, jwtSvc, cfg, svc, rateStore)
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		JWT:        jwtSvc,
		Signer:     signer,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Config:     cfg,
	}
}

// UserOption adjusts a user fixture before it is inserted.
type UserOption func(*models.User)

// Verified marks the fixture as having confirmed its email.
func Verified() UserOption {
	return func(u *models.User) { u.IsVerified = true }
}

// Admin grants administrator rights to the fixture.
func Admin() UserOption {
	return func(u *models.User) {
		u.IsAdmin = true
		u.IsVerified = true
	}
}

// CreateUser inserts an active user with the given credentials. Verified users receive a profile.
func (e *Env) CreateUser(email, password string, opts ...UserOption) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  hashed,
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(user)
	}

	require.NoError(e.T, e.DB.Create(user).Error)
	if user.IsVerified {
		require.NoError(e.T, e.DB.Create(&models.Profile{UserID: user.ID}).Error)
	}
	return user
}

// TokenPair mirrors the token object in the login response.
type TokenPair struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int    `json:"expires_in"`
}

// UserPayload captures the user fields returned by the API.
type UserPayload struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	PhoneNumber *string         `json:"phone_number"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	IsAdmin     bool            `json:"is_admin"`
	IsVerified  bool            `json:"is_verified"`
	IsPremium   bool            `json:"is_premium"`
	Profile     *ProfilePayload `json:"profile"`
}

// ProfilePayload captures the profile fields returned by the API.
type ProfilePayload struct {
	UserID    string  `json:"user_id"`
	Gender    string  `json:"gender"`
	Bio       string  `json:"bio"`
	BirthDate *string `json:"birth_date"`
}

// LoginResult bundles the JSON response from POST /api/users/login/.
type LoginResult struct {
	Token TokenPair   `json:"token"`
	User  UserPayload `json:"user"`
}

// Login authenticates with email and password and returns the issued tokens.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/users/login/", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token.Access)
	require.NotEmpty(e.T, result.Token.Refresh)
	require.Greater(e.T, result.Token.ExpiresIn, 0)

	return result
}

// AccessToken issues an access token for user without going through the login endpoint.
func (e *Env) AccessToken(user *models.User) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(user.ID)
	require.NoError(e.T, err)
	return token
}

// SentMail waits for queued lifecycle emails to be delivered and returns everything sent so far.
func (e *Env) SentMail() []mail.Message {
	e.T.Helper()
	e.Dispatcher.Drain()
	return e.Mailer.Messages()
}

// TokenFromMail returns the token query value following marker in the plain text body of the
// most recent message sent to address.
func (e *Env) TokenFromMail(address, marker string) string {
	e.T.Helper()

	messages := e.SentMail()
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if !containsAddress(msg.Recipients(), address) {
			continue
		}
		idx := strings.Index(msg.Body, marker)
		if idx < 0 {
			continue
		}
		rest := msg.Body[idx+len(marker):]
		if end := strings.IndexAny(rest, " \r\n"); end >= 0 {
			rest = rest[:end]
		}
		return rest
	}
	e.T.Fatalf("no email to %s containing %q", address, marker)
	return ""
}

func containsAddress(addresses []string, want string) bool {
	for _, a := range addresses {
		if strings.EqualFold(a, want) {
			return true
		}
	}
	return false
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
