package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one outgoing HTML message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SMTPConfig mirrors config.SMTPConfig so this package stays import-free of
// the config layer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, e Email) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("notify: from address: %w", err)
	}
	if err := m.To(e.To); err != nil {
		return fmt.Errorf("notify: to address: %w", err)
	}
	m.Subject(e.Subject)
	m.SetBodyString(mail.TypeTextHTML, e.HTML)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("notify: send to %s: %w", e.To, err)
	}
	return nil
}

// LogMailer only logs. It is used when no SMTP host is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mail")}
}

func (l *LogMailer) Send(_ context.Context, e Email) error {
	l.log.Info("email not sent (no SMTP host)", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}
