package entity

// UserState состояние чата в боте
type UserState string

const (
	StateIdle     UserState = "idle"     // Снимки только по запросу
	StateWatching UserState = "watching" // Снимки приходят при каждой детекции
)

// User представляет пользователя бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateIdle,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// Watching сообщает, подписан ли чат на рассылку снимков
func (u *User) Watching() bool {
	return u.State == StateWatching
}
