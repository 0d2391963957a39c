package storage

import (
	"context"
	"sort"
	"sync"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище пользователей
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]*entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]*entity.User),
	}
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()

	if exists {
		return user, nil
	}

	// Создаём нового пользователя
	newUser := entity.NewUser(userID, chatID)

	r.mu.Lock()
	r.users[userID] = newUser
	r.mu.Unlock()

	return newUser, nil
}

// Save сохраняет состояние пользователя
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()

	return nil
}

// ListByState возвращает копии пользователей в заданном состоянии
func (r *MemoryUserRepository) ListByState(ctx context.Context, state entity.UserState) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entity.User, 0, len(r.users))
	for _, user := range r.users {
		if user.State == state {
			u := *user
			users = append(users, &u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
