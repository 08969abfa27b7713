package mail

import (
	"context"
	"errors"
	"sync"
)

// MemoryMailer records messages instead of delivering them. It backs local development
// setups without SMTP and the test suites.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
	failWith error
}

// NewMemoryMailer constructs an empty recording mailer.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

// Send stores the message, or returns the configured failure.
func (m *MemoryMailer) Send(ctx context.Context, msg Message) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if len(msg.Recipients()) == 0 {
		return errors.New("mail: at least one recipient is required")
	}

	msg.To = append([]string(nil), msg.To...)
	msg.Bcc = append([]string(nil), msg.Bcc...)
	m.messages = append(m.messages, msg)
	return nil
}

// FailWith makes subsequent sends return err. Passing nil restores normal behaviour.
func (m *MemoryMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Messages returns a copy of the recorded messages.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Reset discards recorded messages.
func (m *MemoryMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
