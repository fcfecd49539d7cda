package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, updates UserProfileUpdate) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserProfileUpdate carries the mutable profile fields. Nil means unchanged.
type UserProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Role    *string `json:"role,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

type userService struct {
	log  *logger.Logger
	repo repos.UserRepo
}

func NewUserService(baseLog *logger.Logger, repo repos.UserRepo) UserService {
	return &userService{log: baseLog.With("service", "UserService"), repo: repo}
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.repo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, eris.Wrap(err, "load user")
	}
	if user == nil {
		return nil, eris.New("user not found")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, updates UserProfileUpdate) (*types.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if updates.Name != nil {
		user.Name = *updates.Name
	}
	if updates.Company != nil {
		user.Company = *updates.Company
	}
	if updates.Role != nil {
		user.Role = *updates.Role
	}
	if updates.Phone != nil {
		user.Phone = *updates.Phone
	}
	if _, err := s.repo.Save(ctx, nil, user); err != nil {
		return nil, eris.Wrap(err, "save user")
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Delete(ctx, nil, userID)
}
