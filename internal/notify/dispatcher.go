// AngelaMos | 2026
// dispatcher.go

package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atelierline/portal/internal/config"
)

// AccessNotice is everything a new client needs to reach their project.
// TempPassword is only set when the account was created or its password
// was rotated in the same operation.
type AccessNotice struct {
	RecipientName  string
	AccessCode     string
	ProjectAddress string
	ProjectName    string
	Tier           int
	TempPassword   string
	PortalURL      string
}

type Dispatcher interface {
	SendAccessNotice(ctx context.Context, email string, notice AccessNotice) error
}

// NewDispatcher returns an SMTP dispatcher when mail is configured and a
// log-only dispatcher otherwise.
func NewDispatcher(cfg config.MailConfig, logger *slog.Logger) (Dispatcher, error) {
	if !cfg.Configured() {
		logger.Warn("mail not configured, access notices will only be logged")
		return NewLogDispatcher(logger), nil
	}

	d, err := NewSMTPDispatcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create smtp dispatcher: %w", err)
	}
	return d, nil
}

type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// SendAccessNotice logs the notice and always succeeds. The temporary
// password is never written to the log.
func (d *LogDispatcher) SendAccessNotice(
	ctx context.Context,
	email string,
	notice AccessNotice,
) error {
	d.logger.InfoContext(ctx, "access notice (log only)",
		"email", email,
		"access_code", notice.AccessCode,
		"project_name", notice.ProjectName,
		"project_address", notice.ProjectAddress,
		"tier", notice.Tier,
		"includes_password", notice.TempPassword != "",
	)
	return nil
}
