package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
	applogger "github.com/arklim/commerce-platform-verify/internal/infra/logger"
)

const defaultSMSTimeout = 10 * time.Second

type smsClient struct {
	baseURL string
	apiKey  string
	sender  string
	client  *http.Client
	logger  *zap.Logger
}

func newSMSClient(cfg config.SMSSettings, logger *zap.Logger) *smsClient {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}

	return &smsClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type smsSendRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

type smsSendResponse struct {
	MessageID string `json:"message_id"`
	Cost      string `json:"cost,omitempty"`
}

func smsText(code string, kind domain.Kind) string {
	switch kind {
	case domain.KindPhoneChange:
		return fmt.Sprintf("Code to confirm your new phone number: %s", code)
	case domain.KindLogin2FA:
		return fmt.Sprintf("Your sign-in code: %s", code)
	default:
		return fmt.Sprintf("Your verification code: %s", code)
	}
}

func (c *smsClient) send(ctx context.Context, to, code string, kind domain.Kind) domain.DispatchOutcome {
	payload, err := json.Marshal(smsSendRequest{
		To:   to,
		From: c.sender,
		Text: smsText(code, kind),
	})
	if err != nil {
		return failure(fmt.Errorf("marshal sms request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return failure(fmt.Errorf("build sms request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("sms dispatch failed",
			zap.String("to", applogger.MaskPhone(to)),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return failure(fmt.Errorf("sms provider request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return failure(fmt.Errorf("read sms provider response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("sms provider rejected dispatch",
			zap.String("to", applogger.MaskPhone(to)),
			zap.String("kind", string(kind)),
			zap.Int("status", resp.StatusCode),
		)
		return failure(fmt.Errorf("sms provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed smsSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failure(fmt.Errorf("decode sms provider response: %w", err))
	}

	outcome := domain.DispatchOutcome{Success: true}
	if parsed.MessageID != "" {
		outcome.ProviderID = &parsed.MessageID
	}
	if parsed.Cost != "" {
		outcome.Cost = &parsed.Cost
	}

	return outcome
}
