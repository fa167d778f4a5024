package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shotsync/internal/config"
)

const userAgent = "shotsync/0.1.0"

// RunSummary is the part of a batch run a notification reports.
type RunSummary struct {
	RunID     string
	Show      string
	Source    string
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	show := strings.TrimSpace(summary.Show)
	if show == "" {
		show = "mixed shows"
	}
	total := summary.Succeeded + summary.Failed

	data := payload{
		tags: []string{"shotsync", "ingest", "completed"},
	}
	if summary.Failed == 0 {
		data.title = "shotsync - Shots Ready"
		data.message = fmt.Sprintf("%s: %d shots synced in %s", show, total, duration)
	} else {
		data.title = "shotsync - Run Finished With Errors"
		data.message = fmt.Sprintf("%s: %d succeeded, %d failed in %s", show, summary.Succeeded, summary.Failed, duration)
		data.tags = append(data.tags, "warning")
		data.priority = "high"
	}
	if source := strings.TrimSpace(summary.Source); source != "" {
		data.message += "\nSource: " + source
	}
	if summary.RunID != "" {
		data.message += "\nRun: " + summary.RunID
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "shotsync - Error",
		message:  builder.String(),
		tags:     []string{"shotsync", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "shotsync - Test",
		message:  "Notification system test",
		tags:     []string{"shotsync", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
