package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
	})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected disabled configuration to succeed: %v", err)
	}

	if mailer == nil {
		t.Fatal("expected mailer to be returned")
	}
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	if err != ErrSMTPDisabled {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
}

func TestFormatMessagePlainText(t *testing.T) {
	content, err := formatMessage("from@example.com", Message{
		To:      []string{"to@example.com"},
		Subject: "Subject\r\nBreak",
		Body:    "Body",
	})
	if err != nil {
		t.Fatalf("format message: %v", err)
	}
	if !strings.Contains(content, "From: from@example.com") {
		t.Fatalf("expected from header, got %q", content)
	}
	if !strings.Contains(content, "Subject: Subject  Break") {
		t.Fatalf("expected sanitised subject, got %q", content)
	}
	if !strings.Contains(content, "Content-Type: text/plain; charset=UTF-8") {
		t.Fatalf("expected plain text content type, got %q", content)
	}
	if !strings.HasSuffix(content, "Body") {
		t.Fatalf("expected body suffix, got %q", content)
	}
}

func TestFormatMessageAlternativeHidesBcc(t *testing.T) {
	content, err := formatMessage("from@example.com", Message{
		Bcc:     []string{"admin@example.com"},
		Subject: "Weekly digest",
		Body:    "plain body",
		HTML:    "<h1>html body</h1>",
	})
	if err != nil {
		t.Fatalf("format message: %v", err)
	}
	if !strings.Contains(content, "multipart/alternative; boundary=") {
		t.Fatalf("expected multipart content type, got %q", content)
	}
	if !strings.Contains(content, "To: undisclosed-recipients:;") {
		t.Fatalf("expected undisclosed recipients header, got %q", content)
	}
	if strings.Contains(content, "admin@example.com") {
		t.Fatalf("bcc address leaked into message: %q", content)
	}
	if !strings.Contains(content, "text/plain; charset=UTF-8") || !strings.Contains(content, "text/html; charset=UTF-8") {
		t.Fatalf("expected both alternative parts, got %q", content)
	}
	if !strings.Contains(content, "<h1>html body</h1>") || !strings.Contains(content, "plain body") {
		t.Fatalf("expected part bodies, got %q", content)
	}
}

func TestMessageRecipientsIncludesBcc(t *testing.T) {
	msg := Message{
		To:  []string{"user@example.com"},
		Bcc: []string{"admin@example.com", "user@example.com"},
	}
	got := msg.Recipients()
	if len(got) != 2 || got[0] != "user@example.com" || got[1] != "admin@example.com" {
		t.Fatalf("unexpected recipients: %v", got)
	}
}

func TestMemoryMailer(t *testing.T) {
	mailer := NewMemoryMailer()
	ctx := context.Background()

	if err := mailer.Send(ctx, Message{To: []string{"user@example.com"}, Subject: "Hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := mailer.Send(ctx, Message{}); err == nil {
		t.Fatal("expected missing recipient error")
	}

	boom := errors.New("transport down")
	mailer.FailWith(boom)
	if err := mailer.Send(ctx, Message{To: []string{"user@example.com"}}); !errors.Is(err, boom) {
		t.Fatalf("expected configured failure, got %v", err)
	}

	if got := mailer.Messages(); len(got) != 1 || got[0].Subject != "Hi" {
		t.Fatalf("unexpected recorded messages: %v", got)
	}
	mailer.Reset()
	if len(mailer.Messages()) != 0 {
		t.Fatal("expected reset to clear messages")
	}
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
		UseTLS:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	sm, ok := mailer.(*smtpMailer)
	if !ok {
		t.Fatalf("expected smtpMailer type")
	}

	if sm.cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to be assigned")
	}

	if sm.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout to be 10s, got %v", sm.cfg.Timeout)
	}
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "No recipients",
		Body:    "Body",
	})
	if err == nil || !strings.Contains(err.Error(), "at least one recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesFromAddress(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("expected invalid from error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesRecipientAddresses(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To: []string{"user@example.com", "bad-address"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient address") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"}
	result := uniqueAddresses(addresses)
	if len(result) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(result), result)
	}
	if result[0] != "alice@example.com" || result[1] != "bob@example.com" {
		t.Fatalf("unexpected result order/content: %v", result)
	}
}
