package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/services"
)

type stubOrchestrator struct {
	result *services.OrchestratorResult
	err    error

	gotUserID uuid.UUID
	gotConvID *uuid.UUID
	gotText   string
}

func (s *stubOrchestrator) HandleMessage(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, content string) (*services.OrchestratorResult, error) {
	s.gotUserID = userID
	s.gotConvID = conversationID
	s.gotText = content
	return s.result, s.err
}

func chatRequest(t *testing.T, userID uuid.UUID, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		ctx := requestdata.WithRequestData(req.Context(), &requestdata.RequestData{UserID: userID})
		req = req.WithContext(ctx)
	}
	c.Request = req
	return w, c
}

func TestChatStartsNewConversation(t *testing.T) {
	convID := uuid.New()
	orch := &stubOrchestrator{result: &services.OrchestratorResult{
		ConversationID: convID,
		Reply:          "Tell me more.",
	}}
	h := NewChatHandler(orch)

	userID := uuid.New()
	w, c := chatRequest(t, userID, gin.H{"message": "We're building CareLoop."})
	h.Chat(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, orch.gotUserID)
	assert.Nil(t, orch.gotConvID)
	assert.Equal(t, "We're building CareLoop.", orch.gotText)

	var resp services.OrchestratorResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, convID, resp.ConversationID)
	assert.Equal(t, "Tell me more.", resp.Reply)
}

func TestChatContinuesConversation(t *testing.T) {
	convID := uuid.New()
	orch := &stubOrchestrator{result: &services.OrchestratorResult{ConversationID: convID, Reply: "ok"}}
	h := NewChatHandler(orch)

	w, c := chatRequest(t, uuid.New(), gin.H{"message": "more details", "conversation_id": convID.String()})
	h.Chat(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, orch.gotConvID)
	assert.Equal(t, convID, *orch.gotConvID)
}

func TestChatRejectsBadConversationID(t *testing.T) {
	h := NewChatHandler(&stubOrchestrator{})
	w, c := chatRequest(t, uuid.New(), gin.H{"message": "hi", "conversation_id": "nope"})
	h.Chat(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatConfigurationErrorMapsTo503(t *testing.T) {
	orch := &stubOrchestrator{err: &services.ConfigurationError{Resource: "extraction_schema"}}
	h := NewChatHandler(orch)

	w, c := chatRequest(t, uuid.New(), gin.H{"message": "hi"})
	h.Chat(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "not_configured", envelope.Error.Code)
}

func TestChatResponseFieldNames(t *testing.T) {
	convID := uuid.New()
	orch := &stubOrchestrator{result: &services.OrchestratorResult{
		ConversationID: convID,
		Reply:          "Happy to set that up.",
		MeetingIntent:  &services.MeetingIntent{Requested: true, Urgency: "medium", MeetingType: "discovery", DurationMinutes: 30},
	}}
	h := NewChatHandler(orch)

	w, c := chatRequest(t, uuid.New(), gin.H{"message": "Can we schedule a call?"})
	h.Chat(c)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "conversation_id")
	assert.Contains(t, raw, "response")
	assert.Contains(t, raw, "meeting_request")
	assert.NotContains(t, raw, "reply")
	assert.NotContains(t, raw, "meeting_intent")
}

func TestChatRequiresAuth(t *testing.T) {
	h := NewChatHandler(&stubOrchestrator{})
	w, c := chatRequest(t, uuid.Nil, gin.H{"message": "hi"})
	h.Chat(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
