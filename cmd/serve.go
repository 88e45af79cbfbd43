package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/app/controller"
	"github.com/wildventure-hub/ms-go-checkout/app/notify"
	"github.com/wildventure-hub/ms-go-checkout/app/provider"
	"github.com/wildventure-hub/ms-go-checkout/app/repository"
	"github.com/wildventure-hub/ms-go-checkout/app/service"
	"github.com/wildventure-hub/ms-go-checkout/app/wildspeak"
	"github.com/wildventure-hub/ms-go-checkout/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for checkout sessions, provider webhooks, and pricing.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, checkoutService, cleanup := mustCreateCheckoutService()
	defer cleanup()

	checkoutController := controller.NewCheckoutController(checkoutService, wildspeak.NewClient(cfg.WildSpeak))

	e := setupHTTPServer(checkoutController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(checkoutController *controller.CheckoutController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", checkoutController.Health)

	pricing := e.Group("/pricing")
	pricing.GET("/tiers", checkoutController.ListTiers)
	pricing.GET("/resolve", checkoutController.ResolvePrice)

	payments := e.Group("/payments")
	payments.POST("/paypal/create-order", checkoutController.CreatePayPalOrder)
	payments.POST("/paypal/capture-order", checkoutController.CapturePayPalOrder)
	payments.POST("/paystack/initialize", checkoutController.InitializePaystackTransaction)
	payments.POST("/paystack/verify", checkoutController.VerifyPaystackTransaction)
	payments.POST("/webhook", checkoutController.HandleWebhook)
	payments.GET("/sessions/:reference", checkoutController.GetSession)

	e.POST("/wildspeak/analyze", checkoutController.AnalyzeWildlifeAudio)

	return e
}

func mustCreateCheckoutService() (*config.Config, *service.CheckoutService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewSessionEventRepository(db)
	webhookRepo := repository.NewWebhookRecordRepository(db)

	paypalProvider := provider.NewPayPalProvider(provider.PayPalConfig{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		BaseURL:      cfg.PayPal.BaseURL,
		ReturnURL:    cfg.PayPal.ReturnURL,
		CancelURL:    cfg.PayPal.CancelURL,
		BrandName:    cfg.PayPal.BrandName,
		WebhookID:    cfg.PayPal.WebhookID,
		HTTPTimeout:  cfg.PayPal.HTTPTimeout,
	})
	paystackProvider := provider.NewPaystackProvider(provider.PaystackConfig{
		SecretKey:     cfg.Paystack.SecretKey,
		WebhookSecret: cfg.Paystack.WebhookSecret,
		BaseURL:       cfg.Paystack.BaseURL,
		CallbackURL:   cfg.Paystack.CallbackURL,
		HTTPTimeout:   cfg.Paystack.HTTPTimeout,
	})

	providerRegistry := provider.NewRegistry(paypalProvider, paystackProvider)
	checkoutService := service.NewCheckoutService(
		sessionRepo,
		eventRepo,
		webhookRepo,
		providerRegistry,
		cfg.Checkout,
		cfg.App.FrontendURL,
		notify.NewMailer(cfg.SMTP),
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, checkoutService, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
