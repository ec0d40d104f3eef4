package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ncanimate/internal/config"
	"ncanimate/internal/scheduler"
	"ncanimate/internal/services"
)

const userAgent = "ncanimate/1.0"

// Service defines the notification surface used by job runs.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary scheduler.Summary) error
	NotifyRunFailed(ctx context.Context, productID string, err error) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary scheduler.Summary) error {
	if summary.Succeeded() {
		if !n.onSuccess {
			return nil
		}
		return n.send(ctx, payload{
			title: "ncanimate - " + summary.ProductID,
			message: fmt.Sprintf("Generated %d output(s), %d up to date, in %s",
				len(summary.Generated), summary.UpToDate, summary.Elapsed.Round(time.Second)),
			tags: []string{"ncanimate", "run", "completed"},
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d outdated output(s) not generated", len(summary.Failed), summary.Outdated)
	const listed = 5
	for i, f := range summary.Failed {
		if i == listed {
			fmt.Fprintf(&b, "\n... and %d more", len(summary.Failed)-listed)
			break
		}
		fmt.Fprintf(&b, "\n%s (%s)", f.Output.ID, f.Reason)
	}
	return n.send(ctx, payload{
		title:    "ncanimate - " + summary.ProductID + " incomplete",
		message:  b.String(),
		tags:     []string{"ncanimate", "run", "incomplete"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, productID string, err error) error {
	message := "unknown error"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	label := strings.TrimSpace(productID)
	if label == "" {
		label = "run"
	}
	return n.send(ctx, payload{
		title:    "ncanimate - " + label + " failed",
		message:  message,
		tags:     []string{"ncanimate", "error", services.Classify(err)},
		priority: "high",
	})
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

func (noopService) NotifyRunCompleted(context.Context, scheduler.Summary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error        { return nil }
