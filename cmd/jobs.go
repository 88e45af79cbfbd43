package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wildventure-hub/ms-go-checkout/app/service"
	"github.com/wildventure-hub/ms-go-checkout/config"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stale provider-backed checkout sessions",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *service.CheckoutService, ctx context.Context) error {
				return s.RunReconcileBatch(ctx)
			},
		)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run confirmation-notification related commands",
}

var notifyDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch pending payment confirmation emails",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"notify_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.NotifyDispatchInterval },
			func(s *service.CheckoutService, ctx context.Context) error {
				return s.RunDispatchNotificationsBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Mark long-running pending-approval sessions as expired",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(s *service.CheckoutService, ctx context.Context) error {
				return s.RunExpirePendingBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(expireCmd)
	notifyCmd.AddCommand(notifyDispatchCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.CheckoutService, ctx context.Context) error,
) {
	cfg, checkoutService, cleanup := mustCreateCheckoutService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), checkoutService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(checkoutService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	checkoutService *service.CheckoutService,
	fn func(s *service.CheckoutService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(checkoutService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(checkoutService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
