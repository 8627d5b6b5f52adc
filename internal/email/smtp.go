package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS requires STARTTLS when true, otherwise it is used opportunistically.
	TLS bool
}

// SMTPSender sends email through an SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) client() (*mail.Client, error) {
	policy := mail.TLSOpportunistic
	if s.cfg.TLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(policy),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

// build converts msg into a go-mail message.
func build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("%w: sender: %w", ErrInvalidMessage, err)
	}
	for _, to := range msg.To {
		if err := m.AddToFormat(to.Name, to.Email); err != nil {
			return nil, fmt.Errorf("%w: recipient: %w", ErrInvalidMessage, err)
		}
	}
	for _, cc := range msg.Cc {
		if err := m.AddCcFormat(cc.Name, cc.Email); err != nil {
			return nil, fmt.Errorf("%w: cc: %w", ErrInvalidMessage, err)
		}
	}
	if msg.ReplyTo != nil {
		if err := m.ReplyToFormat(msg.ReplyTo.Name, msg.ReplyTo.Email); err != nil {
			return nil, fmt.Errorf("%w: reply-to: %w", ErrInvalidMessage, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()

	switch {
	case msg.HTML != "" && msg.Text != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	m, err := build(msg)
	if err != nil {
		return "", err
	}

	client, err := s.client()
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderRejected, err)
	}
	return m.GetMessageID(), nil
}
