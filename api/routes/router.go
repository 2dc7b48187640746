package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boostcv/backend/api/controllers"
	webhookcontrollers "github.com/boostcv/backend/api/controllers/webhooks"
	"github.com/boostcv/backend/api/middleware"
	"github.com/boostcv/backend/pkg/config"
	"github.com/boostcv/backend/pkg/logger"
	"github.com/boostcv/backend/pkg/metrics"
)

// RouterParams groups everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	PaymentService  controllers.PaymentService
	CouponService   controllers.CouponService
	Downloads       controllers.DownloadAuthorizer
	WebhookService  webhookcontrollers.AsaasWebhookService
	WebhookTokens   webhookcontrollers.WebhookTokenSource
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
}

// NewRouter assembles the API routes with the shared middleware chain.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/", controllers.CreateCharge(p.PaymentService, logg))
		r.Post("/subscription", controllers.CreateSubscription(p.PaymentService, logg))
		r.Get("/status", controllers.PaymentStatus(p.PaymentService, logg))
		r.Post("/validate-coupon", controllers.ValidateCoupon(p.CouponService, logg))
		r.Post("/register-usage", controllers.RegisterCouponUsage(p.CouponService, logg))
	})

	r.Route("/api/v1/resumes", func(r chi.Router) {
		r.Post("/download", controllers.DownloadResume(p.Downloads, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/asaas", webhookcontrollers.AsaasWebhook(p.WebhookService, p.WebhookTokens, logg))
	})

	return r
}
