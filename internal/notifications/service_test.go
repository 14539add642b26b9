package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"automerge/internal/config"
	"automerge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "merge completed",
			event:         notifications.EventMergeCompleted,
			payload:       notifications.Payload{"processed": 3, "total": 4, "duration": 61 * time.Second},
			expectTitle:   "Automerge - Movies Merged",
			expectMessage: "🎬 Merged 3 of 4 movie groups in 1m1s",
			expectTags:    "automerge,merge,completed",
		},
		{
			name:          "split completed",
			event:         notifications.EventSplitCompleted,
			payload:       notifications.Payload{"processed": 2, "total": 2},
			expectTitle:   "Automerge - Movies Split",
			expectMessage: "✂️ Split 2 of 2 movies",
			expectTags:    "automerge,split,completed",
		},
		{
			name:           "task failed",
			event:          notifications.EventTaskFailed,
			payload:        notifications.Payload{"task": "merge", "error": errors.New("catalog unreachable")},
			expectTitle:    "Automerge - Error",
			expectMessage:  "❌ merge failed: catalog unreachable",
			expectTags:     "automerge,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Automerge - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "automerge,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSuppressesNoopRuns(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{notifications.EventMergeCompleted, notifications.EventSplitCompleted, "unknown"} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"processed": 0, "total": 0}); err != nil {
			t.Fatalf("publish %s: %v", event, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected suppressed events, got %d calls", calls.Load())
	}

	cfg.Notifications.NotifyNoop = true
	svc = notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventMergeCompleted, notifications.Payload{"processed": 0}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected noop run to notify when enabled, got %d calls", calls.Load())
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic forbidden") {
		t.Fatalf("expected ntfy error, got %v", err)
	}
}
