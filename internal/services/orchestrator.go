package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
	"github.com/openhealth/shared-backend/internal/platform/keylock"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/resilience"
	"github.com/openhealth/shared-backend/internal/types"
)

// historyWindow caps how much transcript is replayed into each model call.
const historyWindow = 50

// OrchestratorResult is the outcome of one conversation turn. The JSON field
// names are the /chat response contract.
type OrchestratorResult struct {
	ConversationID uuid.UUID      `json:"conversation_id"`
	Reply          string         `json:"response"`
	Venture        *types.Venture `json:"venture_data,omitempty"`
	MeetingIntent  *MeetingIntent `json:"meeting_request,omitempty"`
	Meeting        *types.Meeting `json:"meeting,omitempty"`
}

// Orchestrator drives one conversation turn end to end: persist the user
// message, run extraction and aggregation, detect meeting intent, generate
// the reply, persist it. Turns within one conversation are strictly
// serialized by a per-conversation lock; different conversations proceed in
// parallel.
//
// Pipeline failures degrade rather than abort: a failed extraction or merge
// loses nothing (the transcript is re-extracted next turn), and a failed
// reply generation falls back to canned text. Only missing configuration and
// failure to persist messages abort the turn.
type Orchestrator interface {
	HandleMessage(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, content string) (*OrchestratorResult, error)
}

type orchestrator struct {
	log      *logger.Logger
	locks    *keylock.KeyLock
	users    repos.UserRepo
	convs    repos.ConversationRepo
	msgs     repos.MessageRepo
	meets    repos.MeetingRepo
	ventures repos.VentureRepo
	schemas  SchemaStore
	extract  Extractor
	agg      Aggregator
	intents  MeetingIntentDetector
	client   anthropic.Client
	model    string
	tokens   int64
	temp     float64
	retry    resilience.RetryConfig
}

type OrchestratorDeps struct {
	Users    repos.UserRepo
	Convs    repos.ConversationRepo
	Messages repos.MessageRepo
	Meetings repos.MeetingRepo
	Ventures repos.VentureRepo
	Schemas  SchemaStore
	Extract  Extractor
	Agg      Aggregator
	Intents  MeetingIntentDetector
	Client   anthropic.Client

	Model       string
	MaxTokens   int64
	Temperature float64
}

func NewOrchestrator(baseLog *logger.Logger, deps OrchestratorDeps) Orchestrator {
	log := baseLog.With("service", "Orchestrator")
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.ShouldRetry = anthropic.IsRetryable
	retry.OnRetry = func(attempt int, err error) {
		log.Warn("Retrying reply generation", "attempt", attempt, "error", err)
	}
	return &orchestrator{
		log:      log,
		locks:    keylock.New(),
		users:    deps.Users,
		convs:    deps.Convs,
		msgs:     deps.Messages,
		meets:    deps.Meetings,
		ventures: deps.Ventures,
		schemas:  deps.Schemas,
		extract:  deps.Extract,
		agg:      deps.Agg,
		intents:  deps.Intents,
		client:   deps.Client,
		model:    deps.Model,
		tokens:   deps.MaxTokens,
		temp:     deps.Temperature,
		retry:    retry,
	}
}

func (o *orchestrator) HandleMessage(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, content string) (*OrchestratorResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, eris.New("message content is empty")
	}

	conv, err := o.resolveConversation(ctx, userID, conversationID, content)
	if err != nil {
		return nil, err
	}

	// Serialize turns within the conversation. Everything below, including
	// seq assignment, runs under this lock.
	unlock := o.locks.Lock(conv.ID.String())
	defer unlock()

	seq, err := o.msgs.MaxSeq(ctx, nil, conv.ID)
	if err != nil {
		return nil, eris.Wrap(err, "read message sequence")
	}

	userMsg := &types.Message{
		ConversationID: conv.ID,
		Seq:            seq + 1,
		Role:           types.MessageRoleUser,
		Content:        content,
	}
	if _, err := o.msgs.Create(ctx, nil, userMsg); err != nil {
		return nil, eris.Wrap(err, "persist user message")
	}

	schema, err := o.schemas.GetActiveSchema(ctx)
	if err != nil {
		// No active schema is an operator problem, not a user one.
		return nil, err
	}

	history, err := o.msgs.ListByConversation(ctx, nil, conv.ID, historyWindow)
	if err != nil {
		return nil, eris.Wrap(err, "load conversation history")
	}
	transcript := toTranscript(history)

	venture := o.runExtraction(ctx, userID, conv.ID, schema, transcript)
	if venture == nil {
		// Extraction may have failed or produced nothing; reply context still
		// wants whatever venture state exists.
		if existing, err := o.ventures.GetByConversation(ctx, nil, conv.ID); err == nil {
			venture = existing
		}
	}

	intent := o.intents.Detect(ctx, content)
	var meeting *types.Meeting
	if intent.Requested {
		meeting = o.recordMeeting(ctx, userID, conv, venture, intent)
	}

	reply, degraded := o.generateReply(ctx, userID, transcript, venture)

	assistantMsg := &types.Message{
		ConversationID: conv.ID,
		Seq:            userMsg.Seq + 1,
		Role:           types.MessageRoleAssistant,
		Content:        reply,
	}
	if degraded {
		assistantMsg.Metadata = datatypes.JSONMap{"degraded": true}
	}
	if _, err := o.msgs.Create(ctx, nil, assistantMsg); err != nil {
		return nil, eris.Wrap(err, "persist assistant message")
	}

	if err := o.convs.Touch(ctx, nil, conv.ID); err != nil {
		o.log.Warn("Failed to touch conversation", "conversation_id", conv.ID, "error", err)
	}

	return &OrchestratorResult{
		ConversationID: conv.ID,
		Reply:          reply,
		Venture:        venture,
		MeetingIntent:  intent,
		Meeting:        meeting,
	}, nil
}

func (o *orchestrator) resolveConversation(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, content string) (*types.Conversation, error) {
	if conversationID == nil {
		conv, err := o.convs.Create(ctx, nil, &types.Conversation{
			UserID: userID,
			Title:  conversationTitle(content),
			Status: types.ConversationStatusActive,
		})
		if err != nil {
			return nil, eris.Wrap(err, "create conversation")
		}
		return conv, nil
	}

	conv, err := o.convs.GetByID(ctx, nil, *conversationID)
	if err != nil {
		return nil, eris.Wrap(err, "load conversation")
	}
	if conv == nil || conv.UserID != userID {
		// Other users' conversations look like missing ones.
		return nil, eris.New("conversation not found")
	}
	if conv.Status == types.ConversationStatusArchived {
		return nil, eris.New("conversation is archived")
	}
	return conv, nil
}

// runExtraction runs the extract-merge leg of the pipeline. It never fails
// the turn: extraction and merge errors are logged and the transcript is
// simply re-extracted on a later turn. Configuration errors do escape, via
// the venture being nil and the schema check upstream.
func (o *orchestrator) runExtraction(ctx context.Context, userID, convID uuid.UUID, schema *types.ExtractionSchema, transcript []anthropic.Message) *types.Venture {
	result, err := o.extract.Extract(ctx, schema, transcript)
	if err != nil {
		o.log.Warn("Extraction failed", "conversation_id", convID, "error", err)
		return nil
	}
	for _, w := range result.Warnings {
		o.log.Debug("Extraction field dropped", "conversation_id", convID, "field", w.Field, "reason", w.Reason)
	}

	venture, err := o.agg.Apply(ctx, userID, convID, result)
	if err != nil {
		if IsInsufficientDataError(err) {
			o.log.Debug("Not enough data to form a venture yet", "conversation_id", convID, "reason", err.Error())
		} else {
			o.log.Warn("Venture merge failed", "conversation_id", convID, "error", err)
		}
		return nil
	}
	return venture
}

func (o *orchestrator) recordMeeting(ctx context.Context, userID uuid.UUID, conv *types.Conversation, venture *types.Venture, intent *MeetingIntent) *types.Meeting {
	meeting := &types.Meeting{
		UserID:          userID,
		ConversationID:  &conv.ID,
		Title:           meetingTitle(venture),
		DurationMinutes: intent.DurationMinutes,
		MeetingType:     intent.MeetingType,
		Status:          types.MeetingStatusScheduled,
	}
	if venture != nil {
		meeting.VentureID = &venture.ID
	}
	if len(intent.AgendaItems) > 0 {
		if b, err := json.Marshal(intent.AgendaItems); err == nil {
			meeting.AgendaItems = datatypes.JSON(b)
		}
	}
	if len(intent.PreferredTimes) > 0 {
		meeting.Notes = "Preferred times: " + strings.Join(intent.PreferredTimes, "; ")
	}

	created, err := o.meets.Create(ctx, nil, meeting)
	if err != nil {
		o.log.Warn("Failed to record meeting request", "conversation_id", conv.ID, "error", err)
		return nil
	}
	o.log.Info("Meeting request recorded", "meeting_id", created.ID, "type", created.MeetingType, "urgency", intent.Urgency)
	return created
}

// generateReply calls the model for the assistant turn. On failure the user
// still gets an answer: the canned fallback, with the message flagged so it
// can be regenerated later.
func (o *orchestrator) generateReply(ctx context.Context, userID uuid.UUID, transcript []anthropic.Message, venture *types.Venture) (string, bool) {
	system := assistantSystemPrompt
	user, err := o.users.GetByID(ctx, nil, userID)
	if err != nil {
		o.log.Warn("Failed to load user context", "user_id", userID, "error", err)
	}
	if extra := buildReplyContext(user, venture); extra != "" {
		system = system + "\n\n" + extra
	}

	temp := o.temp
	resp, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return o.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       o.model,
			MaxTokens:   o.tokens,
			System:      system,
			Messages:    transcript,
			Temperature: &temp,
		})
	})
	if err != nil {
		rgErr := &ReplyGenerationError{Err: err}
		o.log.Error("Reply generation failed", "user_id", userID, "error", rgErr)
		return fallbackReply, true
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		o.log.Error("Reply generation returned no text", "user_id", userID)
		return fallbackReply, true
	}
	return text, false
}

func toTranscript(history []*types.Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case types.MessageRoleUser, types.MessageRoleAssistant:
			out = append(out, anthropic.Message{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

func conversationTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > 8 {
		words = words[:8]
	}
	title := strings.Join(words, " ")
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}

func meetingTitle(venture *types.Venture) string {
	if venture != nil && venture.Name != "" {
		return fmt.Sprintf("Meeting request: %s", venture.Name)
	}
	return "Meeting request"
}
