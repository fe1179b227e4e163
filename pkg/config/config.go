package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Stripe   StripeConfig
	Sendgrid SendgridConfig
	Mail     MailConfig
	Receipts ReceiptConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BEANVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"BEANVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BEANVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BEANVAULT_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"BEANVAULT_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BEANVAULT_DB_DSN"`
	Driver string `envconfig:"BEANVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BEANVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"BEANVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BEANVAULT_DB_USER"`
	LegacyPassword string `envconfig:"BEANVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"BEANVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"BEANVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BEANVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BEANVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BEANVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BEANVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BEANVAULT_STRIPE_API_KEY"`
	Secret string `envconfig:"BEANVAULT_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"BEANVAULT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey   string `envconfig:"BEANVAULT_SENDGRID_API_KEY"`
	From     string `envconfig:"BEANVAULT_SENDGRID_FROM_EMAIL" default:"orders@beanvault.coffee"`
	FromName string `envconfig:"BEANVAULT_SENDGRID_FROM_NAME" default:"BeanVault"`
}

// MailConfig carries the flags that decide which customer emails fire and how
// they are composed. CombineOrderReceipt merges the order confirmation and the
// receipt into a single message sent once the invoice is paid; when false the
// confirmation goes out at checkout time and no receipt mail is sent.
type MailConfig struct {
	CombineOrderReceipt   bool          `envconfig:"BEANVAULT_MAIL_COMBINE_ORDER_RECEIPT" default:"true"`
	AttachStripeInvoice   bool          `envconfig:"BEANVAULT_MAIL_ATTACH_STRIPE_INVOICE" default:"false"`
	BCCAdmin              bool          `envconfig:"BEANVAULT_MAIL_BCC_ADMIN" default:"false"`
	AdminEmail            string        `envconfig:"BEANVAULT_MAIL_ADMIN_EMAIL" required:"true"`
	BrandName             string        `envconfig:"BEANVAULT_MAIL_BRAND_NAME" default:"BeanVault"`
	SupportEmail          string        `envconfig:"BEANVAULT_MAIL_SUPPORT_EMAIL" default:"support@beanvault.coffee"`
	InvoicePDFPollDelay   time.Duration `envconfig:"BEANVAULT_MAIL_INVOICE_PDF_POLL_DELAY" default:"2s"`
	InvoicePDFPollRetries int           `envconfig:"BEANVAULT_MAIL_INVOICE_PDF_POLL_RETRIES" default:"2"`
}

type ReceiptConfig struct {
	Enabled       bool          `envconfig:"BEANVAULT_RECEIPT_PDF_ENABLED" default:"true"`
	RenderTimeout time.Duration `envconfig:"BEANVAULT_RECEIPT_RENDER_TIMEOUT" default:"25s"`
	PaperWidthMM  float64       `envconfig:"BEANVAULT_RECEIPT_PAPER_WIDTH_MM" default:"210"`
	PaperHeightMM float64       `envconfig:"BEANVAULT_RECEIPT_PAPER_HEIGHT_MM" default:"297"`
}

type CheckoutConfig struct {
	SuccessURL      string            `envconfig:"BEANVAULT_CHECKOUT_SUCCESS_URL" default:"https://beanvault.coffee/checkout/success"`
	CancelURL       string            `envconfig:"BEANVAULT_CHECKOUT_CANCEL_URL" default:"https://beanvault.coffee/checkout/canceled"`
	PortalReturnURL string            `envconfig:"BEANVAULT_PORTAL_RETURN_URL" default:"https://beanvault.coffee/account"`
	Prices          map[string]string `envconfig:"BEANVAULT_CHECKOUT_PRICES"`
}

// PriceFor resolves a catalog SKU to the processor price ID configured for it.
func (c CheckoutConfig) PriceFor(sku string) (string, bool) {
	price, ok := c.Prices[strings.TrimSpace(sku)]
	return price, ok && price != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
