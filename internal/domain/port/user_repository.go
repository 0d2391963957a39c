package port

import (
	"context"

	"whatlooking/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользователей
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// ListByState возвращает пользователей в заданном состоянии
	ListByState(ctx context.Context, state entity.UserState) ([]*entity.User, error)
}
