package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/mail"
	"github.com/charlesng35/accounts/pkg/metrics"
)

var (
	// ErrNotificationNotFound indicates the notification does not exist.
	ErrNotificationNotFound = apperrors.New("NOTIFICATION_NOT_FOUND", "Notification not found", http.StatusNotFound)
	// ErrNotificationAlreadySent is returned when sending a notification twice.
	ErrNotificationAlreadySent = apperrors.New("NOTIFICATION_ALREADY_SENT", "Notification was already sent", http.StatusConflict)
	// ErrNotificationNoRecipients is returned when the audience resolves to nobody.
	ErrNotificationNoRecipients = apperrors.New("NOTIFICATION_NO_RECIPIENTS", "Notification has no recipients", http.StatusBadRequest)
	// ErrNotificationSendInProgress is returned while another sender owns the delivery.
	ErrNotificationSendInProgress = apperrors.New("NOTIFICATION_SEND_IN_PROGRESS", "Notification is being sent", http.StatusConflict)
	// ErrEmailDeliveryFailed wraps transport failures while sending.
	ErrEmailDeliveryFailed = apperrors.New("EMAIL_DELIVERY_FAILED", "Email delivery failed", http.StatusBadGateway)
)

// sendClaimTimeout bounds how long a claim survives a sender that never finished.
const sendClaimTimeout = 10 * time.Minute

// NotificationBlockInput is one body section of a new notification.
type NotificationBlockInput struct {
	Title   string
	Content string
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	Subject     string
	Header      string
	Audience    models.Audience
	UserID      string
	Addresses   []string
	Blocks      []NotificationBlockInput
	IsTest      bool
	ScheduledAt *time.Time
	CreatedByID string
}

// ListNotificationsOptions controls pagination and filtering.
type ListNotificationsOptions struct {
	Page     int
	PageSize int
	WasSent  *bool
}

// NotificationServiceOption customises the NotificationService.
type NotificationServiceOption func(*NotificationService)

// WithNotificationClock injects a custom time source.
func WithNotificationClock(clock func() time.Time) NotificationServiceOption {
	return func(s *NotificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NotificationService stores templated notifications and sends them once.
type NotificationService struct {
	db     *gorm.DB
	mailer mail.Mailer
	now    func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, mailer mail.Mailer, opts ...NotificationServiceOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if mailer == nil {
		return nil, errors.New("notification service: mailer is required")
	}
	svc := &NotificationService{db: db, mailer: mailer, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create persists a notification with its ordered blocks.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	fields := apperrors.FieldErrors{}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		fields.Add("subject", "This field may not be blank.")
	}

	n := &models.Notification{
		Subject:     subject,
		Header:      strings.TrimSpace(input.Header),
		Audience:    input.Audience,
		IsTest:      input.IsTest,
		ScheduledAt: input.ScheduledAt,
	}
	if id := strings.TrimSpace(input.CreatedByID); id != "" {
		n.CreatedByID = &id
	}

	switch input.Audience {
	case models.AudienceUser:
		userID := strings.TrimSpace(input.UserID)
		if userID == "" {
			fields.Add("user_id", "This field is required for the user audience.")
			break
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("notification service: check user: %w", err)
		}
		if count == 0 {
			fields.Add("user_id", "User does not exist.")
		}
		n.UserID = &userID
	case models.AudienceAdmins:
	case models.AudienceList:
		addresses, err := notifications.ListRecipients{Addresses: input.Addresses}.Resolve(ctx, s.db)
		if err != nil {
			return nil, err
		}
		if len(addresses) == 0 {
			fields.Add("addresses", "At least one address is required for the list audience.")
		}
		n.Addresses = datatypes.JSONSlice[string](addresses)
	default:
		fields.Add("audience", fmt.Sprintf("%q is not a valid choice.", string(input.Audience)))
	}

	if !fields.Empty() {
		return nil, apperrors.NewValidation(fields)
	}

	for i, block := range input.Blocks {
		n.Blocks = append(n.Blocks, models.NotificationBlock{
			Position: i,
			Title:    strings.TrimSpace(block.Title),
			Content:  block.Content,
		})
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("notification service: create: %w", err)
	}
	return s.Get(ctx, n.ID)
}

// Get loads a notification and its blocks.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var n models.Notification
	err := s.db.WithContext(ctx).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notification service: get: %w", err)
	}
	return &n, nil
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, opts ListNotificationsOptions) ([]models.Notification, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := pageWindow(opts.Page, opts.PageSize)

	filter := func(db *gorm.DB) *gorm.DB {
		if opts.WasSent != nil {
			return db.Where("was_sent = ?", *opts.WasSent)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count: %w", err)
	}

	var items []models.Notification
	if err := s.db.WithContext(ctx).
		Scopes(filter).
		Order("created_at DESC").
		Order("id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: list: %w", err)
	}
	return items, total, nil
}

// Send delivers the notification now and records the one-way sent transition. Test
// notifications go only to requesterID. Transport failures leave the notification unsent.
func (s *NotificationService) Send(ctx context.Context, id, requesterID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.WasSent {
		return nil, ErrNotificationAlreadySent
	}

	var recipients notifications.Recipients
	if n.IsTest {
		recipients = notifications.UserRecipient{UserID: requesterID}
	} else {
		recipients, err = notifications.RecipientsFor(n)
		if err != nil {
			return nil, fmt.Errorf("notification service: recipients: %w", err)
		}
	}

	if err := s.deliver(ctx, n, recipients); err != nil {
		return nil, err
	}
	return s.Get(ctx, n.ID)
}

// SendDue sends every non-test notification whose scheduled time has passed. It returns how
// many were sent and the combined failures.
func (s *NotificationService) SendDue(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	var due []models.Notification
	if err := s.db.WithContext(ctx).
		Where("was_sent = ? AND is_test = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", false, false, s.now()).
		Preload("Blocks").
		Order("scheduled_at ASC").
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("notification service: load due: %w", err)
	}

	var (
		sent int
		errs error
	)
	for i := range due {
		n := &due[i]
		recipients, err := notifications.RecipientsFor(n)
		if err == nil {
			err = s.deliver(ctx, n, recipients)
		}
		if errors.Is(err, ErrNotificationAlreadySent) || errors.Is(err, ErrNotificationSendInProgress) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("notification %s: %w", n.ID, err))
			continue
		}
		sent++
	}
	return sent, errs
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification, recipients notifications.Recipients) (err error) {
	if err := s.claim(ctx, n.ID); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.release(n.ID)
		}
	}()

	addresses, err := recipients.Resolve(ctx, s.db)
	if err != nil {
		return fmt.Errorf("notification service: resolve recipients: %w", err)
	}
	if len(addresses) == 0 {
		return ErrNotificationNoRecipients
	}

	msg, err := notifications.Compose(notifications.ContentFromNotification(n), nil, addresses)
	if err != nil {
		return fmt.Errorf("notification service: compose: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		metrics.EmailsSent.WithLabelValues(notifications.KindNotification, "failed").Inc()
		return ErrEmailDeliveryFailed.WithInternal(err)
	}
	metrics.EmailsSent.WithLabelValues(notifications.KindNotification, "sent").Inc()

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]any{"was_sent": true, "sent_at": s.now(), "sending_at": nil}).Error; err != nil {
		return fmt.Errorf("notification service: mark sent: %w", err)
	}

	logger.WithModule("notifications").Info("notification sent",
		zap.String("notification_id", n.ID),
		zap.Int("recipients", len(addresses)),
	)
	return nil
}

// claim takes ownership of an unsent notification before the transport is called, so
// concurrent senders cannot both deliver it. Claims older than sendClaimTimeout are taken over.
func (s *NotificationService) claim(ctx context.Context, id string) error {
	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND was_sent = ?", id, false).
		Where("sending_at IS NULL OR sending_at < ?", now.Add(-sendClaimTimeout)).
		Update("sending_at", now)
	if result.Error != nil {
		return fmt.Errorf("notification service: claim: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.WasSent {
		return ErrNotificationAlreadySent
	}
	return ErrNotificationSendInProgress
}

// release clears the claim after a failed delivery, even when ctx was cancelled.
func (s *NotificationService) release(id string) {
	if err := s.db.
		Model(&models.Notification{}).
		Where("id = ? AND was_sent = ?", id, false).
		Update("sending_at", nil).Error; err != nil {
		logger.WithModule("notifications").Warn("release send claim",
			zap.String("notification_id", id),
			zap.Error(err),
		)
	}
}
