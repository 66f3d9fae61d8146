package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wordxl/internal/config"
	"wordxl/internal/session"
)

const userAgent = "wordxl/0.1.0"

// Service is the notification surface used by the CLI.
type Service interface {
	NotifySessionFinished(ctx context.Context, snap session.Snapshot, took time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed notifier, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionFinished(ctx context.Context, snap session.Snapshot, took time.Duration) error {
	return n.send(ctx, sessionPayload(snap, took))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "wordxl - Test",
		message:  "Notification system test",
		tags:     []string{"wordxl", "test"},
		priority: "low",
	})
}

// sessionPayload describes a terminal snapshot. Sessions that never reached
// a terminal phase are reported as cancelled.
func sessionPayload(snap session.Snapshot, took time.Duration) payload {
	took = took.Round(time.Second)
	if took < 0 {
		took = 0
	}
	files := fmt.Sprintf("%d file(s), %s", snap.Summary.Total, snap.Summary.BytesLabel())

	switch snap.Phase {
	case session.PhaseComplete:
		message := fmt.Sprintf("Converted %s in %s", files, took)
		if snap.Result != nil && snap.Result.Path != "" {
			message += "\nSaved: " + snap.Result.Path
		}
		return payload{
			title:   "wordxl - Conversion Complete",
			message: message,
			tags:    []string{"wordxl", "convert", "completed"},
		}
	case session.PhaseFailed:
		reason := strings.TrimSpace(snap.Error)
		if reason == "" {
			reason = "unknown"
		}
		return payload{
			title:    "wordxl - Conversion Failed",
			message:  fmt.Sprintf("Conversion of %s failed: %s", files, reason),
			tags:     []string{"wordxl", "error", "alert"},
			priority: "high",
		}
	default:
		return payload{
			title:   "wordxl - Conversion Cancelled",
			message: fmt.Sprintf("Conversion of %s was cancelled", files),
			tags:    []string{"wordxl", "convert", "cancelled"},
		}
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionFinished(context.Context, session.Snapshot, time.Duration) error {
	return nil
}

func (noopService) TestNotification(context.Context) error { return nil }
