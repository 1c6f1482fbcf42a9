package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"paygrid.io/app/internal/modules/refunds"
)

type HealthHandler struct {
	DB           *gorm.DB
	Orchestrator *refunds.Orchestrator
}

func NewHealthHandler(db *gorm.DB, o *refunds.Orchestrator) *HealthHandler {
	return &HealthHandler{DB: db, Orchestrator: o}
}

// GET /healthz
func (h *HealthHandler) Check(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "ok"

	sqlDB, err := h.DB.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err = sqlDB.PingContext(ctx)
		cancel()
	}
	if err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	rh := h.Orchestrator.Health()
	if rh.Status != "ok" && status == http.StatusOK {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database": dbStatus,
		"refunds":  rh,
	})
}
