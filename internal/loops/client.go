// Package loops talks to the hosted email/waitlist provider.
package loops

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultTransactionalURL is the provider's transactional email endpoint.
const DefaultTransactionalURL = "https://app.loops.so/api/v1/transactional"

const resetTemplateID = "password-reset"

// Client wraps the provider's HTTP API. Waitlist submissions are
// fire-once: no retries and no idempotency key, so a duplicate click on the
// site produces a duplicate submission upstream. That is accepted behavior.
type Client struct {
	http             *resty.Client
	waitlistURL      string
	transactionalURL string
	apiKey           string
}

func NewClient(waitlistURL, transactionalURL, apiKey string, timeoutMS int) *Client {
	if transactionalURL == "" {
		transactionalURL = DefaultTransactionalURL
	}
	return &Client{
		http: resty.New().
			SetTimeout(time.Duration(timeoutMS) * time.Millisecond).
			SetHeader("Content-Type", "application/json"),
		waitlistURL:      waitlistURL,
		transactionalURL: transactionalURL,
		apiKey:           apiKey,
	}
}

type waitlistPayload struct {
	Email       string `json:"email"`
	Source      string `json:"source"`
	SignedUpFor string `json:"signedUpFor"`
}

type providerError struct {
	Message string `json:"message"`
}

// SubmitWaitlist forwards one waitlist signup. A non-2xx response or a
// transport error is a failure; the provider's message is surfaced when it
// sends one, otherwise a generic fallback.
func (c *Client) SubmitWaitlist(ctx context.Context, email, source string) error {
	payload := waitlistPayload{
		Email:       email,
		Source:      source,
		SignedUpFor: "waiting list",
	}

	var errBody providerError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(&errBody).
		Post(c.waitlistURL)
	if err != nil {
		return fmt.Errorf("waitlist request failed: %w", err)
	}

	if resp.IsError() {
		if errBody.Message != "" {
			return fmt.Errorf("waitlist submission rejected: %s", errBody.Message)
		}
		return fmt.Errorf("waitlist submission failed with status %d", resp.StatusCode())
	}

	return nil
}

type transactionalPayload struct {
	TransactionalID string            `json:"transactionalId"`
	Email           string            `json:"email"`
	DataVariables   map[string]string `json:"dataVariables"`
}

// SendPasswordReset dispatches the password reset email. Without an API key
// (local development) the send is skipped and the link is logged instead,
// so the flow degrades rather than failing.
func (c *Client) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	if c.apiKey == "" {
		log.Warn().Str("email", email).Str("reset_url", resetURL).Msg("No provider API key; logging reset link instead of emailing")
		return nil
	}

	payload := transactionalPayload{
		TransactionalID: resetTemplateID,
		Email:           email,
		DataVariables: map[string]string{
			"resetUrl": resetURL,
		},
	}

	var errBody providerError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(payload).
		SetError(&errBody).
		Post(c.transactionalURL)
	if err != nil {
		return fmt.Errorf("reset email request failed: %w", err)
	}

	if resp.IsError() {
		if errBody.Message != "" {
			return fmt.Errorf("reset email rejected: %s", errBody.Message)
		}
		return fmt.Errorf("reset email failed with status %d", resp.StatusCode())
	}

	return nil
}
