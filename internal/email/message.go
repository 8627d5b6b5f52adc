// Package email composes storefront notifications and hands them to a
// provider.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidMessage = errors.New("invalid email message")

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

type Message struct {
	From    Address
	To      []Address
	Cc      []Address
	ReplyTo *Address
	Subject string
	HTML    string
	Text    string
}

func (m Message) Validate() error {
	if m.From.Email == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidMessage)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// AccountChecker is implemented by providers that can verify their
// credentials.
type AccountChecker interface {
	Account(ctx context.Context) (map[string]any, error)
	MaskedKey() string
	KeyLength() int
}

// MaskKey keeps the first and last five characters of a secret.
func MaskKey(key string) string {
	if len(key) <= 10 {
		return strings.Repeat("*", len(key))
	}
	return key[:5] + "..." + key[len(key)-5:]
}
