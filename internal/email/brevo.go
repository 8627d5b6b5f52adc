package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultBrevoURL is the Brevo v3 API root.
const DefaultBrevoURL = "https://api.brevo.com/v3"

// ErrProviderRejected wraps a non-2xx answer from the provider.
var ErrProviderRejected = errors.New("email provider rejected request")

// BrevoSender sends transactional email through the Brevo REST API.
type BrevoSender struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewBrevoSender(baseURL, apiKey string, timeout time.Duration) *BrevoSender {
	if baseURL == "" {
		baseURL = DefaultBrevoURL
	}
	return &BrevoSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type brevoPayload struct {
	Sender      Address   `json:"sender"`
	To          []Address `json:"to"`
	Cc          []Address `json:"cc,omitempty"`
	ReplyTo     *Address  `json:"replyTo,omitempty"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent,omitempty"`
	TextContent string    `json:"textContent,omitempty"`
}

func (s *BrevoSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      msg.From,
		To:          msg.To,
		Cc:          msg.Cc,
		ReplyTo:     msg.ReplyTo,
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := s.do(ctx, http.MethodPost, "/smtp/email", body, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// Account fetches the account the API key belongs to.
func (s *BrevoSender) Account(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := s.do(ctx, http.MethodGet, "/account", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BrevoSender) MaskedKey() string {
	return MaskKey(s.apiKey)
}

func (s *BrevoSender) KeyLength() int {
	return len(s.apiKey)
}

func (s *BrevoSender) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("brevo %s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			log.Printf("[Brevo] API key authentication failed")
		case http.StatusForbidden:
			log.Printf("[Brevo] API key lacks permission for %s", path)
		}
		return fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("brevo %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
