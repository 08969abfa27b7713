package app

import (
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// DispatcherOptions sizes the mail dispatcher. Zero values keep the dispatcher defaults.
func (c EmailConfig) DispatcherOptions() []notifications.DispatcherOption {
	return []notifications.DispatcherOption{
		notifications.WithWorkers(c.Dispatcher.Workers),
		notifications.WithQueueSize(c.Dispatcher.QueueSize),
	}
}
