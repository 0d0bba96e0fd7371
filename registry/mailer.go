package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Mailer delivers one-time passwords to voters.
type Mailer interface {
	SendOTP(to, name, code string) error
}

// LogMailer writes the passwords to the log. It serves development setups
// with no delivery channel.
//
// - implements registry.Mailer
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a mailer writing to the given logger.
func NewLogMailer(logger zerolog.Logger) LogMailer {
	return LogMailer{logger: logger}
}

// SendOTP implements registry.Mailer. It logs the code.
func (m LogMailer) SendOTP(to, name, code string) error {
	m.logger.Info().
		Str("to", to).
		Str("code", code).
		Msg("one-time password issued")

	return nil
}

// WebhookMailer posts the password as a JSON document to a configured
// endpoint, leaving the delivery to an external service.
//
// - implements registry.Mailer
type WebhookMailer struct {
	url    string
	client *http.Client
}

// NewWebhookMailer creates a mailer posting to the given URL.
func NewWebhookMailer(url string) WebhookMailer {
	return WebhookMailer{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendOTP implements registry.Mailer. It posts the code.
func (m WebhookMailer) SendOTP(to, name, code string) error {
	payload, err := json.Marshal(map[string]string{
		"to":   to,
		"name": name,
		"code": code,
	})
	if err != nil {
		return xerrors.Errorf("failed to marshal payload: %v", err)
	}

	resp, err := m.client.Post(m.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return xerrors.Errorf("failed to post: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return xerrors.Errorf("webhook replied with %s", resp.Status)
	}

	return nil
}
