// Package notification talks to the order notification relay.
package notification

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

	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/email"
)

// ErrRelayFailed is returned when the relay does not confirm delivery.
var ErrRelayFailed = errors.New("notification relay failed")

// Request is the body of POST /send-order.
type Request struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	OrderDetails string `json:"orderDetails"`
}

// Response is the relay's success body.
type Response struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Client posts order notifications to the relay.
type Client struct {
	baseURL  string
	currency string
	http     *http.Client
}

func NewClient(baseURL, currency string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

// Send asks the relay to email the order details to the store owner.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRelayFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrRelayFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		if e.Details != "" {
			return nil, fmt.Errorf("%w: status %d: %s: %s", ErrRelayFailed, resp.StatusCode, e.Error, e.Details)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrRelayFailed, resp.StatusCode, e.Error)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrRelayFailed, err)
	}
	return &out, nil
}

// NotifyOrder sends the admin notification for a freshly placed order.
func (c *Client) NotifyOrder(ctx context.Context, o *order.Order) error {
	addr := o.CustomerDetails.Email
	if addr == "" {
		addr = email.PlaceholderEmail
	}

	resp, err := c.Send(ctx, Request{
		Name:         o.CustomerDetails.FullName,
		Email:        addr,
		OrderDetails: email.OrderDetailsFragment(o, c.currency),
	})
	if err != nil {
		return err
	}
	log.Printf("[Notification] Order %s relayed, message %s", o.ID, resp.MessageID)
	return nil
}
