package main

import (
	"log"
	"os"

	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"paygrid.io/app/internal/config"
	"paygrid.io/app/internal/gateway"
	apphttp "paygrid.io/app/internal/http"
	"paygrid.io/app/internal/http/handlers"
	"paygrid.io/app/internal/modules/fees"
	"paygrid.io/app/internal/modules/payments"
	"paygrid.io/app/internal/modules/refunds"
	"paygrid.io/app/internal/modules/tenants"
	"paygrid.io/app/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	v, err := vault.New(cfg.VaultKey)
	if err != nil {
		// never echo the key material itself
		log.Fatalf("vault: %v", err)
	}

	tenantStore := tenants.NewStore(db)
	paymentStore := payments.NewStore(db)
	registry := gateway.NewRegistry()
	factory := gateway.NewFactory(tenantStore, v, registry)

	calculator := fees.NewCalculator(fees.NewGormStore(db), tenantStore)

	orchestrator := refunds.NewOrchestrator(
		paymentStore,
		paymentStore,
		factory,
		refunds.NewRateLimiter(cfg.RefundRateLimit, cfg.RefundRateWindow),
		refunds.NewTracker(refunds.DefaultTrackerCap),
		logger,
	)

	chargeSvc := payments.NewChargeService(paymentStore, factory, calculator, tenantStore, logger)
	webhookSvc := payments.NewWebhookService(db, logger)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:      logger,
		Payments:    handlers.NewPaymentHandler(logger, chargeSvc),
		Refunds:     handlers.NewRefundHandler(logger, orchestrator, paymentStore),
		Credentials: handlers.NewCredentialHandler(logger, factory, v, tenantStore),
		Webhooks:    handlers.NewWebhookHandler(logger, cfg.WebhookSecrets, webhookSvc),
		Health:      handlers.NewHealthHandler(db, orchestrator),
	})

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
