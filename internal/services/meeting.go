package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

type MeetingService interface {
	ListMeetings(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Meeting, error)
	// Confirm fixes the scheduled time of a pending meeting request.
	Confirm(ctx context.Context, userID, meetingID uuid.UUID, scheduledTime time.Time) (*types.Meeting, error)
	Cancel(ctx context.Context, userID, meetingID uuid.UUID) error
}

type meetingService struct {
	log  *logger.Logger
	repo repos.MeetingRepo
}

func NewMeetingService(baseLog *logger.Logger, repo repos.MeetingRepo) MeetingService {
	return &meetingService{log: baseLog.With("service", "MeetingService"), repo: repo}
}

func (s *meetingService) ListMeetings(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Meeting, error) {
	return s.repo.ListByUser(ctx, nil, userID, limit)
}

func (s *meetingService) Confirm(ctx context.Context, userID, meetingID uuid.UUID, scheduledTime time.Time) (*types.Meeting, error) {
	meeting, err := s.owned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status != types.MeetingStatusScheduled {
		return nil, eris.Errorf("meeting is %s", meeting.Status)
	}
	if scheduledTime.Before(time.Now()) {
		return nil, eris.New("scheduled time is in the past")
	}
	meeting.ScheduledTime = &scheduledTime
	if _, err := s.repo.Save(ctx, nil, meeting); err != nil {
		return nil, eris.Wrap(err, "save meeting")
	}
	return meeting, nil
}

func (s *meetingService) Cancel(ctx context.Context, userID, meetingID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, nil, meetingID, types.MeetingStatusCancelled)
}

func (s *meetingService) owned(ctx context.Context, userID, meetingID uuid.UUID) (*types.Meeting, error) {
	meeting, err := s.repo.GetByID(ctx, nil, meetingID)
	if err != nil {
		return nil, eris.Wrap(err, "load meeting")
	}
	if meeting == nil || meeting.UserID != userID {
		return nil, eris.New("meeting not found")
	}
	return meeting, nil
}
