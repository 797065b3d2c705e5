// Package messaging delivers out-of-band alerts through external providers.
//
// The only consumer is the notification engine's sustained-stress escalation
// path; the channel is disabled entirely when no provider is configured.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender sends escalation alerts as SMS via the Twilio API.
// It implements notify.AlertSender.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender creates a Twilio-backed alert sender.
func NewTwilioSender(accountSID, authToken, from string) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials not set")
	}
	if from == "" {
		return nil, fmt.Errorf("twilio sender number not set")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: from}, nil
}

// SendAlert sends one SMS to the configured recipient.
func (s *TwilioSender) SendAlert(ctx context.Context, to string, body string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioSender.SendAlert: failed to send SMS", "error", err, "to", to)
		return fmt.Errorf("failed to send alert SMS: %w", err)
	}
	if resp.Sid != nil {
		slog.Info("TwilioSender.SendAlert: alert SMS sent", "sid", *resp.Sid, "to", to)
	}
	return nil
}

// MockSender records alerts instead of sending them. Used in tests.
type MockSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	calls int
}

// NewMockSender creates a MockSender; fail makes every send return an error.
func NewMockSender(fail bool) *MockSender {
	return &MockSender{fail: fail}
}

func (m *MockSender) SendAlert(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return fmt.Errorf("mock send failure")
	}
	m.sent = append(m.sent, to+": "+body)
	return nil
}

// Sent returns a copy of the recorded alerts.
func (m *MockSender) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

// Calls returns how many sends were attempted.
func (m *MockSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
