package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/services"
	"github.com/openhealth/shared-backend/internal/types"
)

// AdminHandler exposes the dashboard surface: venture pipeline management
// plus schema and scoring weight administration.
type AdminHandler struct {
	ventures      services.VentureService
	conversations services.ConversationService
	schemas       services.SchemaStore
	scoring       services.ScoringPolicy
	auditLog      repos.AuditLogRepo
}

func NewAdminHandler(
	ventures services.VentureService,
	conversations services.ConversationService,
	schemas services.SchemaStore,
	scoring services.ScoringPolicy,
	auditLog repos.AuditLogRepo,
) *AdminHandler {
	return &AdminHandler{
		ventures:      ventures,
		conversations: conversations,
		schemas:       schemas,
		scoring:       scoring,
		auditLog:      auditLog,
	}
}

func adminID(c *gin.Context) *uuid.UUID {
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
		id := rd.UserID
		return &id
	}
	return nil
}

func (h *AdminHandler) ListVentures(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	out, err := h.ventures.ListAll(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"ventures": out})
}

func (h *AdminHandler) UpdateVentureStatus(c *gin.Context) {
	ventureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venture id"})
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	venture, err := h.ventures.UpdateStatus(c.Request.Context(), rd.UserID, ventureID, req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, venture)
}

func (h *AdminHandler) RescoreVenture(c *gin.Context) {
	ventureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venture id"})
		return
	}
	venture, err := h.ventures.Rescore(c.Request.Context(), ventureID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, venture)
}

func (h *AdminHandler) VentureBreakdown(c *gin.Context) {
	ventureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venture id"})
		return
	}
	venture, err := h.ventures.Get(c.Request.Context(), ventureID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{
		"venture_id": venture.ID,
		"score":      venture.Score,
		"breakdown":  venture.ScoreBreakdown,
	})
}

func (h *AdminHandler) FlagConversation(c *gin.Context) {
	h.setConversationFlag(c, true, "conversation flagged")
}

func (h *AdminHandler) UnflagConversation(c *gin.Context) {
	h.setConversationFlag(c, false, "conversation unflagged")
}

func (h *AdminHandler) setConversationFlag(c *gin.Context, flagged bool, message string) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.conversations.FlagConversation(c.Request.Context(), rd.UserID, convID, flagged); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"message": message})
}

func (h *AdminHandler) ListSchemas(c *gin.Context) {
	schemas, err := h.schemas.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"schemas": schemas})
}

func (h *AdminHandler) CreateSchema(c *gin.Context) {
	var req struct {
		Description string              `json:"description"`
		Attributes  types.AttributeDefs `json:"attributes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	schema, err := h.schemas.CreateVersion(c.Request.Context(), req.Description, req.Attributes, adminID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, schema)
}

func (h *AdminHandler) ActivateSchema(c *gin.Context) {
	schemaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schema id"})
		return
	}
	schema, err := h.schemas.Activate(c.Request.Context(), schemaID, adminID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, schema)
}

func (h *AdminHandler) ListWeights(c *gin.Context) {
	weights, err := h.scoring.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"weights": weights})
}

func (h *AdminHandler) CreateWeights(c *gin.Context) {
	var req struct {
		Weights types.WeightMap `json:"weights" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	weights, err := h.scoring.CreateWeights(c.Request.Context(), req.Weights, adminID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, weights)
}

func (h *AdminHandler) ActivateWeights(c *gin.Context) {
	weightsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid weights id"})
		return
	}
	weights, err := h.scoring.Activate(c.Request.Context(), weightsID, adminID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, weights)
}

func (h *AdminHandler) ListAuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.auditLog.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
