package simd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/utils"
)

// Callback is where a job's terminal state is posted.
type Callback struct {
	URL    string
	Secret string
}

// ErrInvalidCallbackURL is returned for callback URLs that are not absolute http(s) URLs.
var ErrInvalidCallbackURL = errors.New("invalid callback URL")

// validateCallbackURL accepts absolute http and https URLs with a host.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, "{job_id}", "job"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallbackURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidCallbackURL)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidCallbackURL)
	}
	return nil
}

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
	NumSamples      int       `json:"num_samples,omitempty"`
	Attempts        int       `json:"attempts,omitempty"`
	AcceptanceRate  float64   `json:"acceptance_rate,omitempty"`
	Timestamp       int64     `json:"timestamp"` // when the notification was sent
}

// Notifier posts job completion notifications
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewNotifier creates a new notification service
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
	}
}

// Notify sends a notification for rec to cb asynchronously.
// The returned channel is closed once delivery succeeds or retries are exhausted.
func (n *Notifier) Notify(cb Callback, rec JobRecord) <-chan struct{} {
	done := make(chan struct{})
	if cb.URL == "" {
		close(done)
		return done
	}

	// Replace {job_id} template in callback URL if present
	finalURL := strings.ReplaceAll(cb.URL, "{job_id}", rec.Job.ID)

	payload := NotificationPayload{
		JobID:           rec.Job.ID,
		Status:          rec.Job.Status,
		CreatedAtUnixMs: rec.Job.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Job.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Job.EndedAtUnixMs,
		Error:           rec.Job.Error,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}
	if rec.Result != nil {
		payload.NumSamples = len(rec.Result.Samples)
		payload.Attempts = rec.Result.Attempts
		payload.AcceptanceRate = rec.Result.AcceptanceRate
	}

	go func() {
		defer close(done)
		n.sendNotification(finalURL, cb.Secret, payload)
	}()
	return done
}

// sendNotification performs the HTTP POST with retry logic
func (n *Notifier) sendNotification(callbackURL string, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"job_id", payload.JobID,
			"error", err)
		return
	}

	// Retries reuse the delivery ID so receivers can drop duplicates.
	deliveryID := utils.GenerateRequestID()
	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: delay = baseDelay * 2^(attempt-1)
			delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"job_id", payload.JobID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "sbi-core/1.0")
		req.Header.Set("X-SBI-Delivery-ID", deliveryID)
		if callbackSecret != "" {
			req.Header.Set("X-SBI-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"job_id", payload.JobID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent successfully",
				"job_id", payload.JobID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"job_id", payload.JobID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"job_id", payload.JobID,
		"status", payload.Status,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
