package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/response"
)

// NotificationHandler exposes admin management of templated notifications.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type notificationBlockRequest struct {
	Title   string `json:"title" validate:"max=255"`
	Content string `json:"content" validate:"required"`
}

type createNotificationRequest struct {
	Subject     string                     `json:"subject" validate:"required,max=255"`
	Header      string                     `json:"header" validate:"max=255"`
	Audience    string                     `json:"audience" validate:"required,oneof=user admins list"`
	UserID      string                     `json:"user_id"`
	Addresses   []string                   `json:"addresses" validate:"omitempty,dive,email"`
	Blocks      []notificationBlockRequest `json:"blocks" validate:"omitempty,dive"`
	IsTest      bool                       `json:"is_test"`
	ScheduledAt *time.Time                 `json:"scheduled_at"`
}

type notificationListResponse struct {
	Count   int64                 `json:"count"`
	Results []models.Notification `json:"results"`
}

// POST /api/notifications/
func (h *NotificationHandler) Create(c *gin.Context) {
	var body createNotificationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	blocks := make([]services.NotificationBlockInput, 0, len(body.Blocks))
	for _, b := range body.Blocks {
		blocks = append(blocks, services.NotificationBlockInput{Title: b.Title, Content: b.Content})
	}

	n, err := h.notifications.Create(requestContext(c), services.CreateNotificationInput{
		Subject:     body.Subject,
		Header:      body.Header,
		Audience:    models.Audience(body.Audience),
		UserID:      body.UserID,
		Addresses:   body.Addresses,
		Blocks:      blocks,
		IsTest:      body.IsTest,
		ScheduledAt: body.ScheduledAt,
		CreatedByID: actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, n)
}

// GET /api/notifications/
func (h *NotificationHandler) List(c *gin.Context) {
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

	items, total, err := h.notifications.List(requestContext(c), services.ListNotificationsOptions{
		Page:     page,
		PageSize: perPage,
		WasSent:  parseBoolQuery(c, "was_sent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.SuccessWithMeta(c, http.StatusOK, notificationListResponse{Count: total, Results: items}, response.NewMeta(page, perPage, total))
}

// GET /api/notifications/:id/
func (h *NotificationHandler) Get(c *gin.Context) {
	n, err := h.notifications.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, n)
}

// POST /api/notifications/:id/send/
func (h *NotificationHandler) Send(c *gin.Context) {
	n, err := h.notifications.Send(requestContext(c), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, n)
}
