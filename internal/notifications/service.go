package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"automerge/internal/config"
)

const userAgent = "Automerge-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventMergeCompleted Event = "merge_completed"
	EventSplitCompleted Event = "split_completed"
	EventTaskFailed     Event = "task_failed"
	EventTest           Event = "test"
)

// Payload carries event fields. Counts are ints; durations are time.Duration.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		notifyNoop: cfg.Notifications.NotifyNoop,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	notifyNoop bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format renders an event. ok is false for suppressed events.
func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventMergeCompleted:
		merged := payload.intValue("processed")
		if merged == 0 && !n.notifyNoop {
			return message{}, false
		}
		return message{
			title: "Automerge - Movies Merged",
			body: fmt.Sprintf("🎬 Merged %d of %d movie groups%s",
				merged, payload.intValue("total"), payload.durationSuffix()),
			tags: []string{"automerge", "merge", "completed"},
		}, true
	case EventSplitCompleted:
		split := payload.intValue("processed")
		if split == 0 && !n.notifyNoop {
			return message{}, false
		}
		return message{
			title: "Automerge - Movies Split",
			body: fmt.Sprintf("✂️ Split %d of %d movies%s",
				split, payload.intValue("total"), payload.durationSuffix()),
			tags: []string{"automerge", "split", "completed"},
		}, true
	case EventTaskFailed:
		var b strings.Builder
		b.WriteString("❌ ")
		if task := payload.stringValue("task"); task != "" {
			b.WriteString(task)
			b.WriteString(" failed")
		} else {
			b.WriteString("Task failed")
		}
		if errText := payload.stringValue("error"); errText != "" {
			b.WriteString(": ")
			b.WriteString(errText)
		}
		return message{
			title:    "Automerge - Error",
			body:     b.String(),
			tags:     []string{"automerge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Automerge - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"automerge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (p Payload) intValue(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) stringValue(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

func (p Payload) durationSuffix() string {
	d, ok := p["duration"].(time.Duration)
	if !ok || d <= 0 {
		return ""
	}
	return " in " + d.Round(time.Second).String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
