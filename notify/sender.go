package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"argus/core"
	"argus/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const httpClientTimeout = 10 * time.Second

// DeliveryResult reports the outcome of one send attempt. Senders never
// panic and never return Go errors to lifecycle callers; a failed delivery
// is an unsuccessful result.
type DeliveryResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func deliveryFailure(format string, args ...any) DeliveryResult {
	return DeliveryResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Sender delivers a payload on one channel. Implementations must be safe to
// call with no recipients (no-op success) and must not panic on transient
// failure.
type Sender interface {
	Send(ctx context.Context, channel string, payload Payload, recipients []string) DeliveryResult
}

// SenderConfig holds delivery endpoint configuration for the HTTP sender.
type SenderConfig struct {
	// SlackWebhookURL receives slack-channel payloads.
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	// WebhookURL receives generic webhook and sms-gateway payloads.
	WebhookURL     string            `mapstructure:"webhook_url"`
	WebhookHeaders map[string]string `mapstructure:"webhook_headers"`

	// SMTP settings for the email channel.
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	FromAddress string `mapstructure:"from_address"`

	// RatePerSecond bounds outbound sends per channel; 0 means 5/s.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// HTTPSender delivers notifications over Slack webhooks, generic webhooks and
// SMTP, with a circuit breaker and rate limiter per channel.
type HTTPSender struct {
	config SenderConfig
	logger *zap.SugaredLogger
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*core.CircuitBreaker
	limiters map[string]*rate.Limiter
}

// NewHTTPSender creates a sender with per-channel circuit breakers.
func NewHTTPSender(config SenderConfig, logger *zap.SugaredLogger) *HTTPSender {
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 5
	}
	return &HTTPSender{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: httpClientTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		breakers: make(map[string]*core.CircuitBreaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Send delivers the payload on the named channel. Unknown channels are
// reported as failures, not errors.
func (s *HTTPSender) Send(ctx context.Context, channel string, payload Payload, recipients []string) DeliveryResult {
	if len(recipients) == 0 && channel == "email" {
		// Nothing to deliver to; treated as success per the sender contract.
		return DeliveryResult{Success: true}
	}

	cb := s.breaker(channel)
	if err := cb.Allow(); err != nil {
		s.logger.Warnw("Circuit breaker rejected notification",
			"channel", channel,
			"alert_id", payload.AlertID,
			"error", err)
		return deliveryFailure("circuit breaker open for channel %s", channel)
	}

	if err := s.limiter(channel).Wait(ctx); err != nil {
		cb.RecordFailure()
		return deliveryFailure("rate limit wait aborted: %v", err)
	}

	var err error
	switch channel {
	case "slack":
		err = s.sendSlack(ctx, payload)
	case "email":
		err = s.sendEmail(payload, recipients)
	case "webhook", "sms":
		err = s.sendWebhook(ctx, channel, payload, recipients)
	default:
		// Misrouted sends never reach an endpoint, so they must not touch
		// the breaker's failure count either way.
		return deliveryFailure("unknown notification channel: %s", channel)
	}

	if err != nil {
		cb.RecordFailure()
		metrics.NotificationsSent.WithLabelValues(channel, "failure").Inc()
		s.logger.Errorw("Notification delivery failed",
			"channel", channel,
			"alert_id", payload.AlertID,
			"error", err)
		return DeliveryResult{Success: false, Error: err.Error()}
	}

	cb.RecordSuccess()
	metrics.NotificationsSent.WithLabelValues(channel, "success").Inc()
	return DeliveryResult{Success: true}
}

func (s *HTTPSender) breaker(channel string) *core.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[channel]
	if !ok {
		cb = core.NewCircuitBreaker(core.DefaultCircuitBreakerConfig())
		s.breakers[channel] = cb
	}
	return cb
}

func (s *HTTPSender) limiter(channel string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[channel]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.config.RatePerSecond), int(s.config.RatePerSecond)+1)
		s.limiters[channel] = l
	}
	return l
}

func (s *HTTPSender) sendSlack(ctx context.Context, payload Payload) error {
	if s.config.SlackWebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	text := fmt.Sprintf("*%s Severity Alert*", strings.ToUpper(payload.Severity.String()))
	if payload.Banner != "" {
		text = payload.Banner
	}
	if payload.MentionOnCall {
		text = "<!subteam^oncall> " + text
	}

	body := map[string]any{
		"text": text,
		"attachments": []map[string]any{
			{
				"color": payload.Color(),
				"fields": []map[string]any{
					{"title": "Alert", "value": payload.Title, "short": true},
					{"title": "Alert ID", "value": fmt.Sprintf("`%s`", payload.AlertID), "short": true},
					{"title": "Category", "value": payload.Category.String(), "short": true},
					{"title": "Source", "value": payload.Source, "short": true},
				},
				"footer": "argus",
				"ts":     time.Now().Unix(),
			},
		},
	}

	return s.postJSON(ctx, s.config.SlackWebhookURL, nil, body)
}

func (s *HTTPSender) sendWebhook(ctx context.Context, channel string, payload Payload, recipients []string) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	body := map[string]any{
		"channel":    channel,
		"recipients": recipients,
		"alert":      payload,
	}
	return s.postJSON(ctx, s.config.WebhookURL, s.config.WebhookHeaders, body)
}

func (s *HTTPSender) postJSON(ctx context.Context, url string, headers map[string]string, body any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "argus/1.0")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSender) sendEmail(payload Payload, recipients []string) error {
	if s.config.SMTPHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(payload.Severity.String()), payload.Title)
	if payload.Banner != "" {
		subject = payload.Banner
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.config.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n\r\n", subject)
	fmt.Fprintf(&msg, "Alert: %s\nSource: %s\nCategory: %s\nStatus: %s\n\n%s\n",
		payload.AlertID, payload.Source, payload.Category, payload.Status, payload.Message)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, nil, s.config.FromAddress, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
