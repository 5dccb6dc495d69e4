// Package sms delivers verification codes through an external SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/REVIVAL-MIMI/psychology/pkg/httpclient"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender writes messages to the log instead of sending them. Used in
// development where no gateway is configured; the admin debug console exposes
// the codes instead.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	s.logger.InfoContext(ctx, "sms suppressed, no gateway configured",
		slog.String("phone", phone),
		slog.String("message", message),
	)
	return nil
}

// GatewayConfig holds SMS gateway connection settings.
type GatewayConfig struct {
	URL    string
	APIKey string
}

// GatewaySender delivers messages through an HTTP SMS gateway. Calls go
// through a circuit breaker so a dead gateway cannot stall login traffic.
type GatewaySender struct {
	client *httpclient.CircuitBreakerClient
	cfg    GatewayConfig
	logger *slog.Logger
}

// NewGatewaySender creates a gateway-backed sender.
func NewGatewaySender(cfg GatewayConfig, logger *slog.Logger) *GatewaySender {
	client := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(
		client,
		httpclient.DefaultCircuitBreakerConfig("sms-gateway"),
		logger,
	)

	return &GatewaySender{
		client: cb,
		cfg:    cfg,
		logger: logger,
	}
}

type gatewayRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts the message to the gateway.
func (s *GatewaySender) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(gatewayRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "sms-gateway")
	}
	_ = resp.Body.Close()

	s.logger.DebugContext(ctx, "sms sent", slog.String("phone", phone))
	return nil
}
