package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/services"
)

type VentureHandler struct {
	ventures services.VentureService
}

func NewVentureHandler(ventures services.VentureService) *VentureHandler {
	return &VentureHandler{ventures: ventures}
}

func (h *VentureHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	out, err := h.ventures.ListForUser(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"ventures": out})
}

func (h *VentureHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	ventureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venture id"})
		return
	}
	venture, err := h.ventures.GetForUser(c.Request.Context(), rd.UserID, ventureID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, venture)
}
