package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// DefaultAPIEndpoint is the SendGrid v3 mail submission endpoint.
const DefaultAPIEndpoint = "https://api.sendgrid.com/v3/mail/send"

// APIChannel submits mail through the SendGrid v3 HTTP API.
type APIChannel struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

var _ Channel = (*APIChannel)(nil)

// NewAPIChannel returns an API channel. An empty endpoint uses
// DefaultAPIEndpoint; a nil client gets a 30s timeout.
func NewAPIChannel(endpoint, apiKey string, client *http.Client, logger *slog.Logger) *APIChannel {
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIChannel{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   logger,
	}
}

func (c *APIChannel) Name() string { return "api" }

type apiAddress struct {
	Email string `json:"email"`
}

type apiContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type apiPersonalization struct {
	To []apiAddress `json:"to"`
}

type apiRequest struct {
	Personalizations []apiPersonalization `json:"personalizations"`
	From             apiAddress           `json:"from"`
	Subject          string               `json:"subject"`
	Content          []apiContent         `json:"content"`
	Headers          map[string]string    `json:"headers,omitempty"`
}

// Send posts env once. Rejected keys are reported as ErrAuthFailed.
func (c *APIChannel) Send(ctx context.Context, env Envelope) error {
	to := make([]apiAddress, 0, len(env.To))
	for _, addr := range env.To {
		to = append(to, apiAddress{Email: addr})
	}
	payload := apiRequest{
		Personalizations: []apiPersonalization{{To: to}},
		From:             apiAddress{Email: env.From},
		Subject:          env.Message.Subject,
		Content: []apiContent{
			{Type: "text/plain", Value: env.Message.Text},
			{Type: "text/html", Value: env.Message.HTML},
		},
	}
	if env.Message.BatchID != "" {
		payload.Headers = map[string]string{batchHeader: env.Message.BatchID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal api payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("delivery attempt", "channel", c.Name(), "attempt", 1, "outcome", "transient", "error", err)
		return fmt.Errorf("post to mail api: %w", err)
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		c.logger.Info("delivery attempt", "channel", c.Name(), "attempt", 1, "outcome", "success")
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Error("delivery attempt", "channel", c.Name(), "attempt", 1, "outcome", "auth", "status", resp.StatusCode)
		return fmt.Errorf("mail api returned %d: %w", resp.StatusCode, ErrAuthFailed)
	default:
		c.logger.Warn("delivery attempt", "channel", c.Name(), "attempt", 1, "outcome", "transient", "status", resp.StatusCode)
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("mail api: %s", bytes.TrimSpace(snippet)),
		}
	}
}
