package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"investment-platform/config"
	"investment-platform/internal/accrual"
	"investment-platform/internal/logging"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyBatchFailure    NotificationType = "batch_failure"
	NotifyWithdrawalQueue NotificationType = "withdrawal_queue"
	NotifyEquityQueue     NotificationType = "equity_queue"
	NotifyError           NotificationType = "error"
	NotifyInfo            NotificationType = "info"
)

// Notification represents an ops alert message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	PeriodKey string
	Amount    float64
	Count     int
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(ctx context.Context, notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans alerts out to the configured providers. It satisfies
// the accrual scheduler's failure sink.
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    *logging.Logger
}

// NewManager creates a notification manager from config, wiring the
// webhook provider when one is configured.
func NewManager(cfg config.NotificationConfig, logger *logging.Logger) *Manager {
	m := &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   cfg.Enabled,
		logger:    logger,
	}

	if cfg.Webhook.Enabled {
		m.AddNotifier(NewWebhookNotifier(cfg.Webhook))
	}

	return m
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(ctx context.Context, notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(ctx, notification); err != nil {
				if m.logger != nil {
					m.logger.Error("notification provider failed", "provider", n.Name(), "error", err.Error())
				}
				lastErr = err
			}
		}
	}
	return lastErr
}

// NotifyBatchFailures reports an accrual batch that had per-investment
// failures. Delivery is best effort; a down webhook never blocks the
// scheduler.
func (m *Manager) NotifyBatchFailures(ctx context.Context, summary *accrual.BatchSummary) {
	failed := make([]map[string]interface{}, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		failed = append(failed, map[string]interface{}{
			"investment_id": f.InvestmentID,
			"error":         f.Error,
			"attempts":      f.Attempts,
		})
	}

	err := m.Send(ctx, &Notification{
		Type:  NotifyBatchFailure,
		Title: fmt.Sprintf("Accrual batch %s had %d failure(s)", summary.PeriodKey, summary.Failed),
		Message: fmt.Sprintf("Batch %s: %d total, %d succeeded, %d failed, %d skipped. Distributed: %.2f",
			summary.PeriodKey, summary.Total, summary.Succeeded, summary.Failed, summary.Skipped, summary.TotalProfitDistributed),
		PeriodKey: summary.PeriodKey,
		Amount:    summary.TotalProfitDistributed,
		Count:     summary.Failed,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"failures": failed,
		},
	})
	if err != nil && m.logger != nil {
		m.logger.Error("failed to deliver batch failure alert", "period_key", summary.PeriodKey, "error", err.Error())
	}
}

// SendWithdrawalQueued alerts reviewers that a withdrawal request is
// waiting for review.
func (m *Manager) SendWithdrawalQueued(ctx context.Context, requestID, investmentID string, amount float64) error {
	return m.Send(ctx, &Notification{
		Type:      NotifyWithdrawalQueue,
		Title:     "Withdrawal request pending review",
		Message:   fmt.Sprintf("Request %s on investment %s for %.2f awaits review", requestID, investmentID, amount),
		Amount:    amount,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"request_id":    requestID,
			"investment_id": investmentID,
		},
	})
}

// SendEquityQueued alerts reviewers that an equity conversion is
// waiting for review.
func (m *Manager) SendEquityQueued(ctx context.Context, transactionID, userID string, points int64) error {
	return m.Send(ctx, &Notification{
		Type:      NotifyEquityQueue,
		Title:     "Equity conversion pending review",
		Message:   fmt.Sprintf("Conversion %s by %s for %d points awaits review", transactionID, userID, points),
		Count:     int(points),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
		},
	})
}

// SendError sends an error notification
func (m *Manager) SendError(ctx context.Context, title, message string) error {
	return m.Send(ctx, &Notification{
		Type:      NotifyError,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// WEBHOOK NOTIFIER
// =============================================================================

// WebhookNotifier posts alerts as JSON to a configured endpoint.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookNotifier) Send(ctx context.Context, notification *Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      string(notification.Type),
		"title":     notification.Title,
		"message":   notification.Message,
		"timestamp": notification.Timestamp.Format(time.RFC3339),
	}
	if notification.PeriodKey != "" {
		payload["period_key"] = notification.PeriodKey
	}
	if notification.Amount != 0 {
		payload["amount"] = notification.Amount
	}
	if notification.Count != 0 {
		payload["count"] = notification.Count
	}
	if len(notification.Extra) > 0 {
		payload["extra"] = notification.Extra
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
