package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beanvault/storefront-backend/api/routes"
	"github.com/beanvault/storefront-backend/internal/billing"
	"github.com/beanvault/storefront-backend/internal/ledger"
	"github.com/beanvault/storefront-backend/internal/mailer"
	"github.com/beanvault/storefront-backend/internal/orders"
	"github.com/beanvault/storefront-backend/internal/subscribers"
	stripewebhook "github.com/beanvault/storefront-backend/internal/webhooks/stripe"
	"github.com/beanvault/storefront-backend/pkg/config"
	"github.com/beanvault/storefront-backend/pkg/db"
	"github.com/beanvault/storefront-backend/pkg/instance"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/mail"
	"github.com/beanvault/storefront-backend/pkg/metrics"
	"github.com/beanvault/storefront-backend/pkg/migrate"
	"github.com/beanvault/storefront-backend/pkg/pdf"
	pkgstripe "github.com/beanvault/storefront-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe client", err)
		os.Exit(1)
	}

	sender, err := mail.NewSendgridSender(cfg.Sendgrid)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize sendgrid sender", err)
		os.Exit(1)
	}

	var renderer pdf.Renderer
	if cfg.Receipts.Enabled {
		renderer = pdf.NewChromeRenderer(cfg.Receipts)
	}

	pipeline := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	mailerService, err := mailer.NewService(mailer.ServiceParams{
		Sender:   sender,
		Renderer: renderer,
		Config:   cfg.Mail,
		Metrics:  pipeline,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger:      ledgerService,
		Orders:      ordersService,
		Subscribers: subscribers.NewRepository(dbClient.DB()),
		Mailer:      mailerService,
		Processor:   stripewebhook.NewProcessorClient(stripeClient),
		MailConfig:  cfg.Mail,
		Metrics:     pipeline,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Client:   billing.NewSessionClient(stripeClient),
		Checkout: cfg.Checkout,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			billingService,
			stripeClient,
			webhookService,
			ledgerService,
			pipeline,
			prometheus.DefaultGatherer,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
