// Package notifications renders templated emails, resolves their recipients and delivers
// them asynchronously.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
)

// ErrUnknownAudience is returned for notifications whose audience is not recognised.
var ErrUnknownAudience = errors.New("notifications: unknown audience")

// Recipients resolves the addresses a notification is delivered to.
type Recipients interface {
	Resolve(ctx context.Context, db *gorm.DB) ([]string, error)
}

// UserRecipient targets a single account.
type UserRecipient struct {
	UserID string
}

func (r UserRecipient) Resolve(ctx context.Context, db *gorm.DB) ([]string, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return nil, errors.New("notifications: user recipient requires a user id")
	}

	var user models.User
	if err := db.WithContext(ctx).Select("email").First(&user, "id = ?", r.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("notifications: load user: %w", err)
	}
	return []string{user.Email}, nil
}

// AdminRecipients targets every active administrator.
type AdminRecipients struct{}

func (AdminRecipients) Resolve(ctx context.Context, db *gorm.DB) ([]string, error) {
	var emails []string
	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = ? AND is_active = ?", true, true).
		Order("email ASC").
		Pluck("email", &emails).Error; err != nil {
		return nil, fmt.Errorf("notifications: load admins: %w", err)
	}
	return emails, nil
}

// ListRecipients targets an explicit address list.
type ListRecipients struct {
	Addresses []string
}

func (r ListRecipients) Resolve(context.Context, *gorm.DB) ([]string, error) {
	return normaliseAddresses(r.Addresses), nil
}

// RecipientsFor picks the resolution rule matching the notification audience.
func RecipientsFor(n *models.Notification) (Recipients, error) {
	switch n.Audience {
	case models.AudienceUser:
		if n.UserID == nil {
			return UserRecipient{}, nil
		}
		return UserRecipient{UserID: *n.UserID}, nil
	case models.AudienceAdmins:
		return AdminRecipients{}, nil
	case models.AudienceList:
		return ListRecipients{Addresses: n.Addresses}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAudience, n.Audience)
	}
}

func normaliseAddresses(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = models.NormalizeEmail(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
