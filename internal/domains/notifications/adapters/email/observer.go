package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
)

var _ ports.Observer = (*Observer)(nil)

// Config describes the SMTP relay.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Observer delivers messages to the recipient's mailbox over SMTP.
type Observer struct {
	cfg  Config
	send SendFunc
}

type Option func(*Observer)

// WithSendFunc replaces the SMTP transport.
func WithSendFunc(fn SendFunc) Option {
	return func(o *Observer) { o.send = fn }
}

func New(cfg Config, opts ...Option) (*Observer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp sender address is required")
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	o := &Observer{cfg: cfg, send: smtp.SendMail}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

func (o *Observer) Name() string { return "email" }

// Update skips recipients without an address.
func (o *Observer) Update(ctx context.Context, msg domain.Message) error {
	to := strings.TrimSpace(msg.Recipient.Email)
	if to == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if o.cfg.Username != "" {
		auth = smtp.PlainAuth("", o.cfg.Username, o.cfg.Password, o.cfg.Host)
	}
	addr := net.JoinHostPort(o.cfg.Host, o.cfg.Port)
	if err := o.send(addr, auth, o.cfg.From, []string{to}, compose(o.cfg.From, to, msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func compose(from, to string, msg domain.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@storefront>\r\n", msg.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	if msg.Recipient.Name != "" {
		fmt.Fprintf(&b, "Hello %s,\r\n\r\n", msg.Recipient.Name)
	}
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
