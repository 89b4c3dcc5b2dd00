package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

// Gateway delivers one-time codes over SMTP and an HTTP SMS provider. It
// reports outcomes; it never retries and never touches token state.
type Gateway struct {
	email *smtpSender
	sms   *smsClient
}

// New constructs the channel gateway from SMTP and SMS provider settings.
func New(smtpCfg config.SMTPSettings, smsCfg config.SMSSettings, logger *zap.Logger) *Gateway {
	return &Gateway{
		email: newSMTPSender(smtpCfg, logger),
		sms:   newSMSClient(smsCfg, logger),
	}
}

// SendEmailCode delivers a code to an email address.
func (g *Gateway) SendEmailCode(ctx context.Context, to, code string, kind domain.Kind, tpl port.EmailTemplateContext) domain.DispatchOutcome {
	return g.email.send(ctx, to, code, kind, tpl)
}

// SendSMSCode delivers a code to a phone number.
func (g *Gateway) SendSMSCode(ctx context.Context, to, code string, kind domain.Kind) domain.DispatchOutcome {
	return g.sms.send(ctx, to, code, kind)
}

var _ port.ChannelGateway = (*Gateway)(nil)

func failure(err error) domain.DispatchOutcome {
	msg := err.Error()
	return domain.DispatchOutcome{Success: false, Error: &msg}
}
