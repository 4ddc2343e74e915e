package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

// Capability is an outbound integration that can deliver a notification
// (e.g. Slack, a generic webhook).
type Capability interface {
	Name() string
	// Notify sends a message to the capability's default target.
	Notify(ctx context.Context, message string) error
}

// Registry holds loaded capabilities by name.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

// FromSettings registers every notifier the settings configure. The registry
// may come back empty when nothing is configured.
func FromSettings(cfg *config.Settings) *Registry {
	reg := NewRegistry()
	if cfg.SlackWebhookURL != "" {
		reg.Register("slack", SlackWebhook{WebhookURL: cfg.SlackWebhookURL})
	}
	if cfg.NotifyWebhookURL != "" {
		reg.Register("webhook", Webhook{URL: cfg.NotifyWebhookURL})
	}
	return reg
}

func (r *Registry) Register(name string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[name] = c
}

func (r *Registry) Get(name string) Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[name]
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) Notify(ctx context.Context, name, message string) error {
	c := r.Get(name)
	if c == nil {
		return fmt.Errorf("capability %q not found", name)
	}
	return c.Notify(ctx, message)
}

// NotifyAll fans the message out to every registered capability and joins
// the failures. An empty registry is a no-op.
func (r *Registry) NotifyAll(ctx context.Context, message string) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Notify(ctx, name, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// SlackWebhook sends messages to a Slack channel via incoming webhook URL.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, message string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not set")
	}
	payload := map[string]any{"text": message}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	return postJSON(ctx, s.WebhookURL, payload, "slack webhook")
}

// Webhook posts notifications as a small JSON document to any HTTP endpoint.
type Webhook struct {
	URL string
}

func (wh Webhook) Name() string { return "webhook" }

func (wh Webhook) Notify(ctx context.Context, message string) error {
	if wh.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	payload := map[string]any{
		"source":  "copilot",
		"message": message,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	return postJSON(ctx, wh.URL, payload, "webhook")
}

func postJSON(ctx context.Context, url string, payload map[string]any, label string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", label, resp.StatusCode)
	}
	return nil
}
