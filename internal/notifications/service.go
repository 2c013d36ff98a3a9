package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"downspout/internal/config"
)

const userAgent = "Downspout/0.1.0"

// Service defines the notification surface exposed to the sync engine.
type Service interface {
	NotifyDownloadCompleted(ctx context.Context, name string, size int64) error
	NotifyAuthFailure(ctx context.Context) error
	NotifySyncFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	endpoint := topic
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://ntfy.sh/" + endpoint
	}

	return &ntfyService{
		endpoint:        endpoint,
		client:          &http.Client{Timeout: timeout},
		notifyDownloads: cfg.Notifications.Downloads,
		notifyErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifyDownloads bool
	notifyErrors    bool
}

func (n *ntfyService) NotifyDownloadCompleted(ctx context.Context, name string, size int64) error {
	if !n.notifyDownloads {
		return nil
	}
	name = strings.TrimSpace(name)
	message := fmt.Sprintf("Downloaded: %s", name)
	if size > 0 {
		message = fmt.Sprintf("%s (%s)", message, humanize.Bytes(uint64(size)))
	}
	data := payload{
		title:   "Downspout - Download Complete",
		message: message,
		tags:    []string{"downspout", "download", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAuthFailure(ctx context.Context) error {
	if !n.notifyErrors {
		return nil
	}
	data := payload{
		title:    "Downspout - Login Failed",
		message:  "The seedbox rejected the configured credentials. Downspout will not retry until the configuration is fixed.",
		tags:     []string{"downspout", "auth", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, err error) error {
	if !n.notifyErrors {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Downspout - Sync Failed",
		message:  fmt.Sprintf("Scan aborted: %s\nNext poll will retry.", detail),
		tags:     []string{"downspout", "sync", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Downspout - Test",
		message:  "Notification system test",
		tags:     []string{"downspout", "test"},
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

func (noopService) NotifyDownloadCompleted(context.Context, string, int64) error { return nil }
func (noopService) NotifyAuthFailure(context.Context) error                      { return nil }
func (noopService) NotifySyncFailed(context.Context, error) error                { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
