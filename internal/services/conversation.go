package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

// conversationDetailLimit caps the transcript returned by the detail
// endpoint. The newest messages win when a conversation outgrows it.
const conversationDetailLimit = 500

// ConversationWithMessages bundles a conversation and its transcript for the
// detail endpoint.
type ConversationWithMessages struct {
	Conversation *types.Conversation `json:"conversation"`
	Messages     []*types.Message    `json:"messages"`
}

type ConversationService interface {
	ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Conversation, error)
	GetConversation(ctx context.Context, userID, convID uuid.UUID) (*ConversationWithMessages, error)
	ArchiveConversation(ctx context.Context, userID, convID uuid.UUID) error
	// FlagConversation marks any conversation for analyst review, or clears
	// the flag. Admin only; the transition is audited.
	FlagConversation(ctx context.Context, adminID, convID uuid.UUID, flagged bool) error
}

type conversationService struct {
	log   *logger.Logger
	convs repos.ConversationRepo
	msgs  repos.MessageRepo
	audit AuditService
}

func NewConversationService(baseLog *logger.Logger, convs repos.ConversationRepo, msgs repos.MessageRepo, audit AuditService) ConversationService {
	return &conversationService{
		log:   baseLog.With("service", "ConversationService"),
		convs: convs,
		msgs:  msgs,
		audit: audit,
	}
}

func (s *conversationService) ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Conversation, error) {
	return s.convs.ListByUser(ctx, nil, userID, limit)
}

func (s *conversationService) GetConversation(ctx context.Context, userID, convID uuid.UUID) (*ConversationWithMessages, error) {
	conv, err := s.owned(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	messages, err := s.msgs.ListByConversation(ctx, nil, convID, conversationDetailLimit)
	if err != nil {
		return nil, eris.Wrap(err, "load messages")
	}
	return &ConversationWithMessages{Conversation: conv, Messages: messages}, nil
}

func (s *conversationService) ArchiveConversation(ctx context.Context, userID, convID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, convID); err != nil {
		return err
	}
	return s.convs.UpdateStatus(ctx, nil, convID, types.ConversationStatusArchived)
}

func (s *conversationService) FlagConversation(ctx context.Context, adminID, convID uuid.UUID, flagged bool) error {
	conv, err := s.convs.GetByID(ctx, nil, convID)
	if err != nil {
		return eris.Wrap(err, "load conversation")
	}
	if conv == nil {
		return eris.New("conversation not found")
	}

	status := types.ConversationStatusActive
	if flagged {
		status = types.ConversationStatusFlagged
	}
	if conv.Status == status {
		return nil
	}
	if !flagged && conv.Status != types.ConversationStatusFlagged {
		// Clearing a flag never resurrects an archived conversation.
		return nil
	}
	if err := s.convs.UpdateStatus(ctx, nil, convID, status); err != nil {
		return eris.Wrap(err, "update status")
	}

	s.audit.Record(ctx, AuditEvent{
		Action:       "conversation.flag",
		ResourceType: "conversation",
		ResourceID:   &conv.ID,
		AdminUserID:  &adminID,
		OldValues:    map[string]any{"status": conv.Status},
		NewValues:    map[string]any{"status": status},
	})
	return nil
}

func (s *conversationService) owned(ctx context.Context, userID, convID uuid.UUID) (*types.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, nil, convID)
	if err != nil {
		return nil, eris.Wrap(err, "load conversation")
	}
	if conv == nil || conv.UserID != userID {
		return nil, eris.New("conversation not found")
	}
	return conv, nil
}
