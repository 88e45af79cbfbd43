package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	HTTP      ServerConfig
	MySQL     MySQLConfig
	Log       LogConfig
	PayPal    PayPalConfig
	Paystack  PaystackConfig
	Checkout  CheckoutConfig
	Jobs      JobsConfig
	SMTP      SMTPConfig
	WildSpeak WildSpeakConfig
}

type AppConfig struct {
	ServiceName string
	FrontendURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	ReturnURL    string
	CancelURL    string
	BrandName    string
	WebhookID    string
	HTTPTimeout  time.Duration
}

type PaystackConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	CallbackURL   string
	HTTPTimeout   time.Duration
}

type CheckoutConfig struct {
	IdempotencyBucket   time.Duration
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
	NotifyMaxAttempts   int32
	NotifyRetryInterval time.Duration
}

type JobsConfig struct {
	ReconcileInterval      time.Duration
	NotifyDispatchInterval time.Duration
	ExpirePendingInterval  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type WildSpeakConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "checkout-service"),
			FrontendURL: getEnv("APP_FRONTEND_URL", "http://localhost:3000"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			BaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ReturnURL:    getEnv("PAYPAL_RETURN_URL", ""),
			CancelURL:    getEnv("PAYPAL_CANCEL_URL", ""),
			BrandName:    getEnv("PAYPAL_BRAND_NAME", "WildVenture Hub"),
			WebhookID:    getEnv("PAYPAL_WEBHOOK_ID", ""),
			HTTPTimeout:  getSecondsEnv("PAYPAL_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Paystack: PaystackConfig{
			SecretKey:     getEnv("PAYSTACK_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYSTACK_WEBHOOK_SECRET", getEnv("PAYSTACK_SECRET_KEY", "")),
			BaseURL:       getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL:   getEnv("PAYSTACK_CALLBACK_URL", ""),
			HTTPTimeout:   getSecondsEnv("PAYSTACK_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Checkout: CheckoutConfig{
			IdempotencyBucket:   getMinutesEnv("CHECKOUT_IDEMPOTENCY_BUCKET_MINUTES", 5*time.Minute),
			PendingTimeout:      getMinutesEnv("CHECKOUT_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("CHECKOUT_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("CHECKOUT_JOB_BATCH_SIZE", 100)),
			NotifyMaxAttempts:   int32(getIntEnv("CHECKOUT_NOTIFY_MAX_ATTEMPTS", 10)),
			NotifyRetryInterval: getMinutesEnv("CHECKOUT_NOTIFY_RETRY_INTERVAL_MINUTES", 5*time.Minute),
		},
		Jobs: JobsConfig{
			ReconcileInterval:      getMinutesEnv("CHECKOUT_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			NotifyDispatchInterval: getMinutesEnv("CHECKOUT_NOTIFY_DISPATCH_INTERVAL_MINUTES", time.Minute),
			ExpirePendingInterval:  getMinutesEnv("CHECKOUT_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@wildventurehub.com"),
		},
		WildSpeak: WildSpeakConfig{
			BaseURL:     getEnv("WILDSPEAK_BASE_URL", ""),
			APIKey:      getEnv("WILDSPEAK_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("WILDSPEAK_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
