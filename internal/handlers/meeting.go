package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/services"
)

type MeetingHandler struct {
	meetings services.MeetingService
}

func NewMeetingHandler(meetings services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

func (h *MeetingHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	meetings, err := h.meetings.ListMeetings(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"meetings": meetings})
}

func (h *MeetingHandler) Confirm(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}
	var req struct {
		ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	meeting, err := h.meetings.Confirm(c.Request.Context(), rd.UserID, meetingID, req.ScheduledTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, meeting)
}

func (h *MeetingHandler) Cancel(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}
	if err := h.meetings.Cancel(c.Request.Context(), rd.UserID, meetingID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"message": "meeting cancelled"})
}
