package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beanvault/storefront-backend/api/controllers"
	webhookcontrollers "github.com/beanvault/storefront-backend/api/controllers/webhooks"
	"github.com/beanvault/storefront-backend/api/middleware"
	"github.com/beanvault/storefront-backend/internal/billing"
	"github.com/beanvault/storefront-backend/internal/ledger"
	"github.com/beanvault/storefront-backend/pkg/config"
	"github.com/beanvault/storefront-backend/pkg/db"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/metrics"
	pkgstripe "github.com/beanvault/storefront-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	billingService *billing.Service,
	stripeClient *pkgstripe.Client,
	webhookService webhookcontrollers.StripeEventService,
	ledgerService ledger.Service,
	pipeline *metrics.PipelineMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/health", controllers.Health())
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, dbP, logg))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/webhook", webhookcontrollers.StripeWebhook(webhookService, stripeClient, ledgerService, pipeline, logg))

	r.Get("/billing-portal/link", controllers.BillingPortalLink(billingService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/session", controllers.CreateCheckoutSession(billingService, logg))
	})

	return r
}
