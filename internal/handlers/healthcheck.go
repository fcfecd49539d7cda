package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhealth/shared-backend/internal/db"
)

type HealthHandler struct {
	pg *db.PostgresService
}

func NewHealthHandler(pg *db.PostgresService) *HealthHandler {
	return &HealthHandler{pg: pg}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.pg.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
