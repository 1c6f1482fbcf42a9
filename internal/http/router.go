package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/http/handlers"
	"paygrid.io/app/internal/http/middleware"
)

// Deps bundles everything the router mounts. Construction happens in
// cmd/web; the router only wires routes to handlers.
type Deps struct {
	Logger      *slog.Logger
	Payments    *handlers.PaymentHandler
	Refunds     *handlers.RefundHandler
	Credentials *handlers.CredentialHandler
	Webhooks    *handlers.WebhookHandler
	Health      *handlers.HealthHandler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))

	r.GET("/healthz", d.Health.Check)
	r.GET("/metrics", middleware.PrometheusHandler())

	r.POST("/webhooks/:provider", d.Webhooks.Handle)

	api := r.Group("/api")
	{
		api.POST("/payments/charge", d.Payments.Charge)
		api.POST("/payments/authorize", d.Payments.Authorize)
		api.POST("/payments/:id/capture", d.Payments.Capture)

		api.POST("/refunds", d.Refunds.Create)
		api.GET("/refunds/stats", d.Refunds.Stats)
		api.GET("/refunds/:id", d.Refunds.Get)

		api.PUT("/tenants/:id/credentials", d.Credentials.Upsert)
		api.POST("/tenants/:id/credentials/validate", d.Credentials.Validate)
	}

	return r
}
