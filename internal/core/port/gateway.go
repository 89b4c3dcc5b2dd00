package port

import (
	"context"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// EmailTemplateContext carries optional personalization for email dispatches.
type EmailTemplateContext struct {
	RecipientName string
	ExpiresIn     string
}

// ChannelGateway delivers verification codes over email or SMS. The engine
// treats it as send(destination, message) -> outcome; provider wiring lives
// behind this boundary. A failed outcome is reported, never retried here.
type ChannelGateway interface {
	SendEmailCode(ctx context.Context, to, code string, kind domain.Kind, tpl EmailTemplateContext) domain.DispatchOutcome
	SendSMSCode(ctx context.Context, to, code string, kind domain.Kind) domain.DispatchOutcome
}
