package app

import (
	"context"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SetState(state)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Watch подписывает чат на снимки при каждой детекции.
func (s *UserService) Watch(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateWatching)
}

// Unwatch отписывает чат.
func (s *UserService) Unwatch(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateIdle)
}

// Watchers возвращает подписанные чаты.
func (s *UserService) Watchers(ctx context.Context) ([]*entity.User, error) {
	return s.repo.ListByState(ctx, entity.StateWatching)
}
