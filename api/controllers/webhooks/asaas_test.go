package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	asaaswebhook "github.com/boostcv/backend/internal/webhooks/asaas"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
)

type stubWebhookService struct {
	events []asaaswebhook.Event
	err    error
}

func (s *stubWebhookService) HandleEvent(_ context.Context, event *asaaswebhook.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *event)
	return nil
}

type staticTokenSource string

func (s staticTokenSource) WebhookToken() string { return string(s) }

const eventBody = `{"id":"evt_1","event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","subscription":"sub_1","status":"CONFIRMED"}}`

func TestAsaasWebhookAcceptsConfiguredToken(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader(eventBody))
	req.Header.Set("asaas-access-token", "shhh")
	w := httptest.NewRecorder()

	AsaasWebhook(svc, staticTokenSource("shhh"), nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if len(svc.events) != 1 || svc.events[0].Payment.ID != "pay_1" {
		t.Fatalf("event not dispatched: %+v", svc.events)
	}
}

func TestAsaasWebhookRejectsBadToken(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader(eventBody))
	req.Header.Set("asaas-access-token", "wrong")
	w := httptest.NewRecorder()

	AsaasWebhook(svc, staticTokenSource("shhh"), nil).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("rejected deliveries must not dispatch")
	}
}

func TestAsaasWebhookSkipsCheckWithoutConfiguredToken(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader(eventBody))
	w := httptest.NewRecorder()

	AsaasWebhook(svc, staticTokenSource(""), nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestAsaasWebhookToleratesExtraPayloadFields(t *testing.T) {
	svc := &stubWebhookService{}
	body := `{"id":"evt_1","event":"PAYMENT_RECEIVED","dateCreated":"2026-08-31","payment":{"id":"pay_1","customer":"cus_1","billingType":"PIX","value":9.9}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader(body))
	w := httptest.NewRecorder()

	AsaasWebhook(svc, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown fields must not break deliveries, got %d", w.Code)
	}
}

func TestAsaasWebhookMapsValidationErrors(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeValidation, "confirmation event missing payment payload")}
	body := `{"id":"evt_1","event":"PAYMENT_CONFIRMED"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader(body))
	w := httptest.NewRecorder()

	AsaasWebhook(svc, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestAsaasWebhookRejectsMalformedJSON(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	AsaasWebhook(svc, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}
