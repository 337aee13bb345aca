package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/studymate/backend/internal/config"
)

// Provider relays a text message to a phone number. The OTP service does not
// care which gateway is behind it.
type Provider interface {
	Send(ctx context.Context, phone, message string) error
}

// NewProvider selects the configured implementation.
func NewProvider(cfg config.Config, log *slog.Logger) (Provider, error) {
	switch cfg.SMSProvider {
	case "console", "":
		return &ConsoleProvider{log: log}, nil
	case "gateway":
		return NewGatewayProvider(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.SMSProvider)
	}
}

// ConsoleProvider logs messages instead of sending them. Default for
// development; the OTP shows up in the server log.
type ConsoleProvider struct {
	log *slog.Logger
}

var _ Provider = (*ConsoleProvider)(nil)

func (p *ConsoleProvider) Send(_ context.Context, phone, message string) error {
	p.log.Info("sms (console)", "phone", phone, "message", message)
	return nil
}

// GatewayProvider posts messages to a hosted SMS HTTP gateway.
type GatewayProvider struct {
	url        string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

var _ Provider = (*GatewayProvider)(nil)

func NewGatewayProvider(cfg config.Config, log *slog.Logger) *GatewayProvider {
	return &GatewayProvider{
		url:    strings.TrimRight(cfg.SMSGatewayURL, "/"),
		apiKey: cfg.SMSGatewayKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (p *GatewayProvider) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(map[string]string{
		"to":   phone,
		"text": message,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.log.Error("sms gateway rejected message", "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("sms gateway error: status=%d", resp.StatusCode)
	}
	return nil
}

// RecorderProvider captures messages for tests.
type RecorderProvider struct {
	mu       sync.Mutex
	Messages []RecordedMessage
}

type RecordedMessage struct {
	Phone   string
	Message string
}

var _ Provider = (*RecorderProvider)(nil)

func (p *RecorderProvider) Send(_ context.Context, phone, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, RecordedMessage{Phone: phone, Message: message})
	return nil
}

func (p *RecorderProvider) Last() (RecordedMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Messages) == 0 {
		return RecordedMessage{}, false
	}
	return p.Messages[len(p.Messages)-1], true
}
