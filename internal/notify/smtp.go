// AngelaMos | 2026
// smtp.go

package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/wneessen/go-mail"

	"github.com/atelierline/portal/internal/config"
)

const accessSubject = "Your project portal access"

var accessBody = template.Must(template.New("access").Parse(
	`Hello{{ if .RecipientName }} {{ .RecipientName }}{{ end }},

Thank you for your payment. Your project has been set up.

Project:      {{ .ProjectName }}
Address:      {{ .ProjectAddress }}
Service tier: {{ .Tier }}
Access code:  {{ .AccessCode }}
{{ if .TempPassword }}
A portal account was created for you. Sign in with this email address and
the temporary password below, then change it:

Temporary password: {{ .TempPassword }}
{{ end }}{{ if .PortalURL }}
Portal: {{ .PortalURL }}
{{ end }}`))

// Sender is the part of *mail.Client the dispatcher uses.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPDispatcher struct {
	sender Sender
	from   string
	logger *slog.Logger
}

func NewSMTPDispatcher(cfg config.MailConfig, logger *slog.Logger) (*SMTPDispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("new mail client: %w", err)
	}

	return NewSMTPDispatcherWithSender(client, cfg.From, logger), nil
}

func NewSMTPDispatcherWithSender(sender Sender, from string, logger *slog.Logger) *SMTPDispatcher {
	return &SMTPDispatcher{
		sender: sender,
		from:   from,
		logger: logger,
	}
}

func (d *SMTPDispatcher) SendAccessNotice(
	ctx context.Context,
	email string,
	notice AccessNotice,
) error {
	msg, err := d.compose(email, notice)
	if err != nil {
		return err
	}

	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send access notice: %w", err)
	}

	d.logger.InfoContext(ctx, "access notice sent",
		"email", email,
		"access_code", notice.AccessCode,
	)
	return nil
}

func (d *SMTPDispatcher) compose(email string, notice AccessNotice) (*mail.Msg, error) {
	var body bytes.Buffer
	if err := accessBody.Execute(&body, notice); err != nil {
		return nil, fmt.Errorf("render access notice: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(d.from); err != nil {
		return nil, fmt.Errorf("access notice sender: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("access notice recipient: %w", err)
	}
	msg.Subject(accessSubject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	return msg, nil
}
