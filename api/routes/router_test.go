package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JEMsword1976/netflix-skipper/internal/checkout"
	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	paddlewebhook "github.com/JEMsword1976/netflix-skipper/internal/webhooks/paddle"
	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubLicenseService struct{}

func (stubLicenseService) VerifyLicense(context.Context, string) (*licensing.VerifyResult, error) {
	return &licensing.VerifyResult{Status: "none"}, nil
}

func (stubLicenseService) CheckStatus(context.Context, string) (*licensing.StatusResult, error) {
	return &licensing.StatusResult{Status: "none", SubscriptionStatus: "none"}, nil
}

type stubWebhookService struct{ calls int }

func (s *stubWebhookService) HandleEvent(context.Context, *paddlewebhook.Envelope) error {
	s.calls++
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) CreatePaymentLink(context.Context, string, string) (*checkout.PaymentLink, error) {
	return &checkout.PaymentLink{CheckoutURL: "https://pay.paddle.com/x"}, nil
}

func (stubCheckoutService) CreatePortalLink(context.Context, string) (*checkout.PortalLink, error) {
	return &checkout.PortalLink{URL: "https://portal.paddle.com/x"}, nil
}

func newTestRouter(t *testing.T, webhookSvc *stubWebhookService, verifier *paddle.SignatureVerifier) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(RouterParams{
		Config:          cfg,
		Redis:           stubPinger{},
		LicenseService:  stubLicenseService{},
		WebhookService:  webhookSvc,
		CheckoutService: stubCheckoutService{},
		Verifier:        verifier,
		Registry:        prometheus.NewRegistry(),
	})
}

func TestRouterRoutes(t *testing.T) {
	verifier := paddle.NewSignatureVerifier("secret", time.Minute)
	router := newTestRouter(t, &stubWebhookService{}, verifier)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{method: http.MethodGet, path: "/health/live", want: http.StatusOK},
		{method: http.MethodGet, path: "/health/ready", want: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{method: http.MethodPost, path: "/api/verify-license", body: `{"token":"tok"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/check-license-status", body: `{"token":"tok"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/create-payment-link", body: `{"email":"u@x.com","plan":"monthly"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/create-customer-portal-link", body: `{"email":"u@x.com"}`, want: http.StatusOK},
		{method: http.MethodGet, path: "/api/verify-license", want: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterWebhookSignatureEnforced(t *testing.T) {
	verifier := paddle.NewSignatureVerifier("secret", time.Minute)
	svc := &stubWebhookService{}
	router := newTestRouter(t, svc, verifier)

	body := []byte(`{"event_type":"transaction.completed","event_id":"evt_1","data":{"email":"u@x.com"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/paddle-webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsigned webhook should be rejected, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service ran without a signature")
	}

	signed := httptest.NewRequest(http.MethodPost, "/api/paddle-webhook", bytes.NewReader(body))
	signed.Header.Set(paddle.SignatureHeader, verifier.Sign(time.Now(), body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signed)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed webhook should ack, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
}

func TestRouterReadyFailsWhenRedisDown(t *testing.T) {
	verifier := paddle.NewSignatureVerifier("secret", time.Minute)
	cfg := &config.Config{}
	cfg.App.Env = "test"
	router := NewRouter(RouterParams{
		Config:          cfg,
		Redis:           stubPinger{err: context.DeadlineExceeded},
		LicenseService:  stubLicenseService{},
		WebhookService:  &stubWebhookService{},
		CheckoutService: stubCheckoutService{},
		Verifier:        verifier,
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when redis is down, got %d", rec.Code)
	}
}
