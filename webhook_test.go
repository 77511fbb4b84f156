package studyhall

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func signBody(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

const validWebhookBody = `{
	"source": "studyhall",
	"event": "notification",
	"timestamp": 1756339200,
	"notification": {"id": "n42", "title": "New reply in Biology", "category": "chat_message", "createdAt": "2026-08-28T10:02:00Z"},
	"recipient": {"id": "u1", "username": "amina"}
}`

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	sig := signBody(validWebhookBody, secret)

	t.Run("valid signature", func(t *testing.T) {
		if !VerifyWebhookSignature(validWebhookBody, sig, secret) {
			t.Error("expected valid signature to verify")
		}
	})

	t.Run("sha256 prefix", func(t *testing.T) {
		if !VerifyWebhookSignature(validWebhookBody, "sha256="+sig, secret) {
			t.Error("expected prefixed signature to verify")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if VerifyWebhookSignature(validWebhookBody, sig, "other-secret") {
			t.Error("expected signature with wrong secret to fail")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		tampered := strings.Replace(validWebhookBody, "n42", "n43", 1)
		if VerifyWebhookSignature(tampered, sig, secret) {
			t.Error("expected tampered body to fail")
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if VerifyWebhookSignature("", sig, secret) {
			t.Error("expected empty body to fail")
		}
		if VerifyWebhookSignature(validWebhookBody, "", secret) {
			t.Error("expected empty signature to fail")
		}
		if VerifyWebhookSignature(validWebhookBody, "sha256=", secret) {
			t.Error("expected bare prefix to fail")
		}
		if VerifyWebhookSignature(validWebhookBody, sig, "") {
			t.Error("expected empty secret to fail")
		}
	})
}

func TestParseWebhookPayload(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		payload, err := ParseWebhookPayload(validWebhookBody)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload.Event != EventNotification {
			t.Errorf("expected event %q, got %q", EventNotification, payload.Event)
		}
		if payload.Notification.ID != "n42" {
			t.Errorf("expected notification id n42, got %q", payload.Notification.ID)
		}
		if payload.Recipient.Username != "amina" {
			t.Errorf("expected recipient amina, got %q", payload.Recipient.Username)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := ParseWebhookPayload("{not json"); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		body := strings.Replace(validWebhookBody, `"studyhall"`, `"otherapp"`, 1)
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Error("expected error for unknown source")
		}
	})

	t.Run("missing event", func(t *testing.T) {
		body := strings.Replace(validWebhookBody, `"notification",`, `"",`, 1)
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Error("expected error for missing event")
		}
	})

	t.Run("missing recipient", func(t *testing.T) {
		body := strings.Replace(validWebhookBody, `"id": "u1"`, `"id": ""`, 1)
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Error("expected error for missing recipient id")
		}
	})
}

func TestWebhookHandle(t *testing.T) {
	secret := "whsec_test"
	var handled []*WebhookPayload
	wh, err := NewWebhook(secret, func(p *WebhookPayload) error {
		handled = append(handled, p)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("valid request", func(t *testing.T) {
		status, _ := wh.Handle(validWebhookBody, signBody(validWebhookBody, secret))
		if status != http.StatusOK {
			t.Errorf("expected 200, got %d", status)
		}
		if len(handled) != 1 {
			t.Fatalf("expected handler called once, got %d", len(handled))
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		status, _ := wh.Handle(validWebhookBody, "sha256=deadbeef")
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})

	t.Run("bad payload", func(t *testing.T) {
		body := `{"source": "otherapp"}`
		status, _ := wh.Handle(body, signBody(body, secret))
		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		if _, err := NewWebhook("", nil); err == nil {
			t.Error("expected error for empty secret")
		}
	})
}

func TestWebhookHTTPHandler(t *testing.T) {
	secret := "whsec_test"
	wh, err := NewWebhook(secret, func(*WebhookPayload) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv := httptest.NewServer(wh.HTTPHandler())
	defer srv.Close()

	post := func(body, sig string) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(body))
		if sig != "" {
			req.Header.Set("X-StudyHall-Signature", sig)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	t.Run("valid request", func(t *testing.T) {
		resp := post(validWebhookBody, signBody(validWebhookBody, secret))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("missing signature header", func(t *testing.T) {
		resp := post(validWebhookBody, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestNotificationWebhookFeedsCenter(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	secret := "whsec_test"
	wh, err := NotificationWebhook(secret, nc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if _, err := nc.Unread(ctx); err != nil {
		t.Fatalf("priming unread cache: %v", err)
	}

	sig := signBody(validWebhookBody, secret)
	for i := 0; i < 3; i++ {
		if status, _ := wh.Handle(validWebhookBody, sig); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
	}

	// Redelivered webhooks invalidate, but the next read is one refetch.
	if _, err := nc.Unread(ctx); err != nil {
		t.Fatalf("refetching unread count: %v", err)
	}
	api.mu.Lock()
	hits := api.unreadHits
	api.mu.Unlock()
	if hits != 2 {
		t.Errorf("expected 2 unread fetches (prime + refetch), got %d", hits)
	}
}
