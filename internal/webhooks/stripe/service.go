package stripewebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/beanvault/storefront-backend/internal/ledger"
	"github.com/beanvault/storefront-backend/internal/mailer"
	"github.com/beanvault/storefront-backend/internal/orders"
	"github.com/beanvault/storefront-backend/internal/subscribers"
	"github.com/beanvault/storefront-backend/pkg/config"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/metrics"
)

type ServiceParams struct {
	Ledger      ledger.Service
	Orders      orders.Service
	Subscribers subscribers.Repository
	Mailer      mailer.Service
	Processor   ProcessorClient
	MailConfig  config.MailConfig
	Metrics     *metrics.PipelineMetrics
	Logger      *logger.Logger
}

// Service turns verified webhook events into database rows and emails.
// Handlers are idempotent: the same event can be delivered any number of
// times and each side effect still happens at most once.
type Service struct {
	ledger      ledger.Service
	orders      orders.Service
	subscribers subscribers.Repository
	mailer      mailer.Service
	processor   ProcessorClient
	mailCfg     config.MailConfig
	metrics     *metrics.PipelineMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dedup ledger required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Subscribers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscribers repo required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer service required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		ledger:      params.Ledger,
		orders:      params.Orders,
		subscribers: params.Subscribers,
		mailer:      params.Mailer,
		processor:   params.Processor,
		mailCfg:     params.MailConfig,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// HandleEvent dispatches one verified event to its handler. Unrecognized
// event types are acknowledged without action so the processor does not
// redeliver them. A panicking handler is converted into an error; the
// transport above decides what the delivery sees.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (err error) {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType := string(event.Type)
	ctx = s.logg.WithEventType(s.logg.WithEventID(ctx, event.ID), eventType)

	start := s.now()
	defer func() {
		s.metrics.ObserveHandleDuration(eventType, s.now().Sub(start))
		if r := recover(); r != nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("handler panic: %v", r))
			s.logg.Error(ctx, "webhook handler panicked", err)
		}
	}()

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case stripe.EventTypeInvoicePaymentSucceeded:
		return s.handleInvoicePaid(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	default:
		s.metrics.IncIgnored(eventType)
		s.logg.Debug(ctx, "event type not handled; acknowledged")
		return nil
	}
}
