package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "whatlooking/internal/application"
	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я показываю, куда смотрит камера и кого она видит.

📋 Команды:
/snapshot — последний кадр с рамками
/watch — присылать снимок при каждой детекции
/unwatch — перестать присылать снимки
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /snapshot — бот пришлёт последний кадр с камеры
2️⃣ Найденные объекты обведены зелёными рамками
3️⃣ /watch — снимки будут приходить сами, не чаще чем раз в несколько секунд

📋 Команды:
/snapshot — последний кадр
/watch — подписаться
/unwatch — отписаться`

	msgWatching       = "👀 Подписка включена. Снимки будут приходить при каждой детекции."
	msgUnwatched      = "❌ Подписка выключена. Отправьте /watch, чтобы включить снова."
	msgNoFrame        = "📭 Камера ещё не прислала ни одного кадра."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendCommand    = "📋 Я понимаю только команды. Используйте /help для справки."
	msgSnapshotError  = "⚠️ Не удалось подготовить снимок. Попробуйте позже."
)

// Sender отправляет сообщения в Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Source отдаёт последний кадр и последнюю геометрию
type Source interface {
	LatestFrame() (*entity.Frame, bool)
	LatestGeometry() (*entity.Geometry, bool)
}

type snapshot struct {
	frame    *entity.Frame
	geometry *entity.Geometry
}

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	users     *app.UserService
	source    Source
	annotator port.Annotator
	interval  time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	lastPush time.Time
	pushes   chan snapshot
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, source Source, annotator port.Annotator, interval time.Duration, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newBot(api, users, source, annotator, interval, log)
	b.api = api
	b.log.Info("authorized on account", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(sender Sender, users *app.UserService, source Source, annotator port.Annotator, interval time.Duration, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		sender:    sender,
		users:     users,
		source:    source,
		annotator: annotator,
		interval:  interval,
		log:       log,
		pushes:    make(chan snapshot, 1),
	}
}

// Run запускает основной цикл обработки сообщений
func (b *Bot) Run(ctx context.Context) error {
	go b.pushLoop(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// Render ставит снимок в очередь рассылки подписчикам. Снимки чаще
// interval отбрасываются, в очереди остаётся только самый свежий.
func (b *Bot) Render(frame *entity.Frame, geometry *entity.Geometry) {
	if frame == nil {
		return
	}

	b.mu.Lock()
	now := time.Now()
	if !b.lastPush.IsZero() && now.Sub(b.lastPush) < b.interval {
		b.mu.Unlock()
		return
	}
	b.lastPush = now
	b.mu.Unlock()

	s := snapshot{frame: frame, geometry: geometry}
	select {
	case b.pushes <- s:
	default:
		// вытесняем устаревший снимок
		select {
		case <-b.pushes:
		default:
		}
		select {
		case b.pushes <- s:
		default:
		}
	}
}

func (b *Bot) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-b.pushes:
			b.push(ctx, s)
		}
	}
}

// push рассылает снимок всем подписанным чатам
func (b *Bot) push(ctx context.Context, s snapshot) {
	watchers, err := b.users.Watchers(ctx)
	if err != nil {
		b.log.Error("error listing watchers", zap.Error(err))
		return
	}
	if len(watchers) == 0 {
		return
	}

	data, err := b.annotator.Annotate(s.frame, s.geometry)
	if err != nil {
		b.log.Error("error annotating frame", zap.Error(err))
		return
	}
	text := caption(s.frame, s.geometry)
	for _, user := range watchers {
		b.sendPhoto(user.ChatID, data, text)
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgSendCommand)
		return
	}
	b.handleCommand(ctx, msg)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if _, err := b.users.Get(ctx, msg.From.ID, chatID); err != nil {
			b.log.Error("error getting user", zap.Error(err))
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "snapshot":
		b.sendSnapshot(chatID)

	case "watch":
		if _, err := b.users.Watch(ctx, msg.From.ID, chatID); err != nil {
			b.log.Error("error saving user", zap.Error(err))
			return
		}
		b.sendMessage(chatID, msgWatching)

	case "unwatch":
		if _, err := b.users.Unwatch(ctx, msg.From.ID, chatID); err != nil {
			b.log.Error("error saving user", zap.Error(err))
			return
		}
		b.sendMessage(chatID, msgUnwatched)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// sendSnapshot отправляет последний кадр с рамками
func (b *Bot) sendSnapshot(chatID int64) {
	frame, ok := b.source.LatestFrame()
	if !ok {
		b.sendMessage(chatID, msgNoFrame)
		return
	}
	geometry, _ := b.source.LatestGeometry()

	data, err := b.annotator.Annotate(frame, geometry)
	if err != nil {
		b.log.Error("error annotating frame", zap.Error(err))
		b.sendMessage(chatID, msgSnapshotError)
		return
	}
	b.sendPhoto(chatID, data, caption(frame, geometry))
}

func caption(frame *entity.Frame, geometry *entity.Geometry) string {
	boxes := 0
	if geometry != nil {
		boxes = len(geometry.Boxes)
	}
	return fmt.Sprintf("🎯 Кадр #%d, %dx%d, объектов: %d", frame.Seq, frame.Width, frame.Height, boxes)
}

// sendPhoto отправляет JPEG с подписью
func (b *Bot) sendPhoto(chatID int64, data []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "snapshot.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := b.sender.Send(photo); err != nil {
		b.log.Error("error sending photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Error("error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

var _ port.RenderSink = (*Bot)(nil)
