package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/tracing"
)

type PushConfig struct {
	BaseURL    string
	MaxRetries int
}

type pushRequest struct {
	ReminderID int64  `json:"reminder_id"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body,omitempty"`
}

// PushClient forwards notifications to a delivery service over HTTP:
// POST {base}/notifications and POST {base}/notifications/dismiss.
type PushClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewPushClient(cfg PushConfig) *PushClient {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &PushClient{
		baseURL:    cfg.BaseURL,
		httpClient: newHTTPClient(cfg.BaseURL),
		maxRetries: maxRetries,
	}
}

func (c *PushClient) Notify(ctx context.Context, reminderID int64, title, body string) error {
	return c.post(ctx, "/notifications", pushRequest{
		ReminderID: reminderID,
		Title:      title,
		Body:       body,
	})
}

func (c *PushClient) Dismiss(ctx context.Context, reminderID int64) error {
	return c.post(ctx, "/notifications/dismiss", pushRequest{ReminderID: reminderID})
}

func (c *PushClient) post(ctx context.Context, path string, payload pushRequest) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to build push URL: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	ctx, span := tracing.StartExternalAPISpan(ctx, "push", u)
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.DebugContext(ctx, "retrying push request",
				slog.Int64("reminder_id", payload.ReminderID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		retry, err := c.send(ctx, u, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	slog.ErrorContext(ctx, "push request failed",
		slog.Int64("reminder_id", payload.ReminderID),
		slog.String("url", u),
		slog.String("error", lastErr.Error()),
	)
	span.RecordError(lastErr)
	return fmt.Errorf("push %s: %w", path, lastErr)
}

// send reports whether a failure is worth retrying.
func (c *PushClient) send(ctx context.Context, u string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", logging.ValidateAndExtractRequestID(logging.RequestIDFromContext(ctx)))
	tracing.InjectToHTTPRequest(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
