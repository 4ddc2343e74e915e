package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

func TestRegistry_RegisterGet(t *testing.T) {
	reg := NewRegistry()
	c := SlackWebhook{WebhookURL: "https://example.com"}
	reg.Register("slack", c)
	got := reg.Get("slack")
	if got != c {
		t.Fatalf("Get(slack): got %+v", got)
	}
	if reg.Get("nonexistent") != nil {
		t.Fatal("Get(nonexistent) should be nil")
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("webhook", Webhook{URL: "https://example.com"})
	reg.Register("slack", SlackWebhook{WebhookURL: "https://example.com"})
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"slack", "webhook"}) {
		t.Fatalf("Names: got %v", got)
	}
}

func TestSlackWebhook_Notify_mockHTTP(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := SlackWebhook{WebhookURL: srv.URL, Channel: "#prep", Username: "copilot"}
	ctx := context.Background()
	if err := c.Notify(ctx, "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if payload["text"] != "hello" || payload["channel"] != "#prep" || payload["username"] != "copilot" {
		t.Fatalf("payload: got %+v", payload)
	}
}

func TestSlackWebhook_Notify_emptyURL(t *testing.T) {
	c := SlackWebhook{}
	ctx := context.Background()
	if err := c.Notify(ctx, "msg"); err == nil {
		t.Fatal("expected error when webhook URL empty")
	}
}

func TestWebhook_Notify_mockHTTP(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := Webhook{URL: srv.URL}
	if err := wh.Notify(context.Background(), "session done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if payload["message"] != "session done" || payload["source"] != "copilot" {
		t.Fatalf("payload: got %+v", payload)
	}
	if payload["sent_at"] == "" {
		t.Fatal("payload missing sent_at")
	}
}

func TestWebhook_Notify_emptyURL(t *testing.T) {
	wh := Webhook{}
	if err := wh.Notify(context.Background(), "msg"); err == nil {
		t.Fatal("expected error when webhook URL empty")
	}
}

func TestWebhook_Notify_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := Webhook{URL: srv.URL}
	err := wh.Notify(context.Background(), "msg")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected 502 error, got %v", err)
	}
}

// failing always errors, for fan-out tests.
type failing struct{}

func (failing) Name() string                         { return "failing" }
func (failing) Notify(context.Context, string) error { return errors.New("boom") }

func TestRegistry_NotifyAll(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got, _ = payload["message"].(string)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	reg.Register("webhook", Webhook{URL: srv.URL})
	reg.Register("failing", failing{})

	err := reg.NotifyAll(context.Background(), "all done")
	if err == nil || !strings.Contains(err.Error(), "failing: boom") {
		t.Fatalf("NotifyAll: expected joined failure, got %v", err)
	}
	if got != "all done" {
		t.Fatalf("working capability should still be notified, got %q", got)
	}
}

func TestRegistry_NotifyAll_empty(t *testing.T) {
	if err := NewRegistry().NotifyAll(context.Background(), "msg"); err != nil {
		t.Fatalf("NotifyAll on empty registry: %v", err)
	}
}

func TestFromSettings(t *testing.T) {
	cfg := &config.Settings{}
	if got := FromSettings(cfg).Names(); len(got) != 0 {
		t.Fatalf("FromSettings empty config: got %v", got)
	}

	cfg = &config.Settings{
		SlackWebhookURL:  "https://hooks.slack.example/x",
		NotifyWebhookURL: "https://notify.example/y",
	}
	reg := FromSettings(cfg)
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"slack", "webhook"}) {
		t.Fatalf("FromSettings: got %v", got)
	}
	slack, ok := reg.Get("slack").(SlackWebhook)
	if !ok || slack.WebhookURL != cfg.SlackWebhookURL {
		t.Fatalf("slack capability: got %+v", reg.Get("slack"))
	}
}
