package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
	applogger "github.com/arklim/commerce-platform-verify/internal/infra/logger"
)

type smtpSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *zap.Logger
}

func newSMTPSender(cfg config.SMTPSettings, logger *zap.Logger) *smtpSender {
	return &smtpSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger,
	}
}

func emailSubject(kind domain.Kind) string {
	switch kind {
	case domain.KindEmailRegistration:
		return "Confirm your email address"
	case domain.KindPasswordReset:
		return "Password reset code"
	case domain.KindEmailChange:
		return "Confirm your new email address"
	default:
		return "Your verification code"
	}
}

func (s *smtpSender) send(ctx context.Context, to, code string, kind domain.Kind, tpl port.EmailTemplateContext) domain.DispatchOutcome {
	msg := gomail.NewMessage()
	if s.fromName != "" {
		msg.SetAddressHeader("From", s.from, s.fromName)
	} else {
		msg.SetHeader("From", s.from)
	}
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", emailSubject(kind))

	greeting := "Hello"
	if tpl.RecipientName != "" {
		greeting = fmt.Sprintf("Hello %s", tpl.RecipientName)
	}

	expiry := ""
	if tpl.ExpiresIn != "" {
		expiry = fmt.Sprintf("<p>The code expires in %s.</p>", tpl.ExpiresIn)
	}

	body := fmt.Sprintf(`
		<p>%s,</p>
		<p>Your verification code is: <strong>%s</strong></p>
		%s
		<p>If you did not request this code, you can ignore this email.</p>
	`, greeting, code, expiry)

	msg.SetBody("text/html", body)

	// DialAndSend has no context support; run it in a goroutine so the
	// caller's dispatch deadline still applies.
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Warn("email dispatch failed",
				zap.String("to", applogger.MaskEmail(to)),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return failure(fmt.Errorf("smtp send: %w", err))
		}
	case <-ctx.Done():
		s.logger.Warn("email dispatch timed out",
			zap.String("to", applogger.MaskEmail(to)),
			zap.String("kind", string(kind)),
		)
		return failure(fmt.Errorf("smtp send: %w", ctx.Err()))
	}

	return domain.DispatchOutcome{Success: true}
}
