package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: " LongPoll "}).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected long poller")
	}
	if lp.Timeout != 10*time.Second {
		t.Fatalf("default timeout = %v", lp.Timeout)
	}

	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}).(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://example.org/hook" {
		t.Fatalf("unexpected webhook settings: %s %s", wh.Listen, wh.Endpoint.PublicURL)
	}
}

func TestDeleteWebhook(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotBody = r.PostForm.Get("drop_pending_updates")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	if err := deleteWebhook(context.Background(), srv.URL, "123:abc", true); err != nil {
		t.Fatalf("deleteWebhook: %v", err)
	}
	if gotPath != "/bot123:abc/deleteWebhook" || gotBody != "true" {
		t.Fatalf("unexpected request: %s drop=%s", gotPath, gotBody)
	}
}

func TestDeleteWebhookRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	err := deleteWebhook(context.Background(), srv.URL, "123:abc", false)
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if err := deleteWebhook(context.Background(), srv.URL, " ", false); err == nil {
		t.Fatalf("expected empty token error")
	}
}
