// Package email sends transactional mail through Resend.
package email

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/resend/resend-go/v2"

	"github.com/mamadbah2/farmer/internal/config"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers emails.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendClient implements Sender using the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewResendClient builds a client from the email configuration.
func NewResendClient(cfg config.EmailConfig) *ResendClient {
	return &ResendClient{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
	}
}

// Send delivers msg and returns the Resend message id.
func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", errors.New("email recipient is empty")
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	resp, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("send email via resend: %w", err)
	}
	return resp.Id, nil
}

// MockSender records messages instead of sending them. It is safe for concurrent use.
type MockSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

// NewMockSender creates an empty mock.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send records msg, or fails with the configured error.
func (m *MockSender) Send(_ context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("mock-%d", len(m.sent)), nil
}

// SetFailure makes every following Send fail with err; nil clears it.
func (m *MockSender) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded messages.
func (m *MockSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

var (
	_ Sender = (*ResendClient)(nil)
	_ Sender = (*MockSender)(nil)
)
