package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	squarewebhook "github.com/brightcart/storefront-backend/internal/webhooks/square"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

type fakeWebhookService struct {
	events  []squarewebhook.Event
	outcome squarewebhook.Outcome
	err     error
}

func (f *fakeWebhookService) Process(_ context.Context, event squarewebhook.Event) (squarewebhook.Outcome, error) {
	f.events = append(f.events, event)
	return f.outcome, f.err
}

type fakeSigning struct {
	secret string
	url    string
}

func (f *fakeSigning) SigningSecret() string   { return f.secret }
func (f *fakeSigning) NotificationURL() string { return f.url }

func sign(secret, url string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(url))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(squarewebhook.SignatureHeader, signature)
	}
	return req
}

func TestSquareWebhookAcceptsSignedEvent(t *testing.T) {
	signing := &fakeSigning{secret: "whsec", url: "https://shop.example.com/api/v1/webhooks/square"}
	svc := &fakeWebhookService{outcome: squarewebhook.OutcomeProcessed}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := Square(svc, signing, logg)

	body, _ := json.Marshal(map[string]any{
		"event_id": "evt_1",
		"type":     squarewebhook.EventPaymentSucceeded,
		"data":     map[string]string{"order_id": "2a9f9f1e-49e5-4fbd-9c4b-0a4cb3a5f001"},
	})
	rec := httptest.NewRecorder()
	handler(rec, webhookRequest(t, body, sign(signing.secret, signing.url, body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].EventID != "evt_1" {
		t.Fatalf("service must receive the decoded event, got %+v", svc.events)
	}
}

func TestSquareWebhookRejectsBadSignature(t *testing.T) {
	signing := &fakeSigning{secret: "whsec", url: "https://shop.example.com/api/v1/webhooks/square"}
	svc := &fakeWebhookService{outcome: squarewebhook.OutcomeProcessed}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := Square(svc, signing, logg)

	body := []byte(`{"event_id":"evt_2","type":"payment_succeeded"}`)
	rec := httptest.NewRecorder()
	handler(rec, webhookRequest(t, body, "forged"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("unsigned payload must never reach reconciliation")
	}
}

func TestSquareWebhookRejectsMalformedBody(t *testing.T) {
	signing := &fakeSigning{secret: "whsec", url: "https://shop.example.com/api/v1/webhooks/square"}
	svc := &fakeWebhookService{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := Square(svc, signing, logg)

	body := []byte(`{not json`)
	rec := httptest.NewRecorder()
	handler(rec, webhookRequest(t, body, sign(signing.secret, signing.url, body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("malformed payload must not reach reconciliation")
	}
}
