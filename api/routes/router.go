package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JEMsword1976/netflix-skipper/api/controllers"
	webhookcontrollers "github.com/JEMsword1976/netflix-skipper/api/controllers/webhooks"
	"github.com/JEMsword1976/netflix-skipper/api/middleware"
	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
	"github.com/JEMsword1976/netflix-skipper/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	Redis           redis.Pinger
	LicenseService  controllers.LicenseService
	WebhookService  webhookcontrollers.PaddleWebhookService
	CheckoutService controllers.CheckoutService
	Verifier        *paddle.SignatureVerifier
	Registry        *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, params.Redis, logg))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify-license", controllers.VerifyLicense(params.LicenseService, logg))
		r.Post("/check-license-status", controllers.CheckLicenseStatus(params.LicenseService, logg))
		r.Post("/paddle-webhook", webhookcontrollers.PaddleWebhook(params.WebhookService, params.Verifier, logg))
		r.Post("/create-payment-link", controllers.CreatePaymentLink(params.CheckoutService, logg))
		r.Post("/create-customer-portal-link", controllers.CreateCustomerPortalLink(params.CheckoutService, logg))
	})

	return r
}
