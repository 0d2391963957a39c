package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GeometryEvent уходит клиентам вебсокета.
type GeometryEvent struct {
	Geometry    *entity.Geometry `json:"geometry"`
	Offsets     []entity.Offset  `json:"offsets"`
	FrameSeq    uint64           `json:"frame_seq,omitempty"`
	FrameWidth  int              `json:"frame_width,omitempty"`
	FrameHeight int              `json:"frame_height,omitempty"`
	// рамки в координатах кадра, если кадр уже есть
	Boxes []entity.Box `json:"boxes,omitempty"`
}

// Hub рассылает геометрию всем подключённым клиентам.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run обслуживает регистрацию и рассылку до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("websocket client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.log.Error("error sending message", zap.Error(err))
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Render кладёт геометрию в очередь рассылки. Если очередь полна,
// событие отбрасывается: клиентам нужна только свежая геометрия.
func (h *Hub) Render(frame *entity.Frame, geometry *entity.Geometry) {
	event := GeometryEvent{Geometry: geometry, Offsets: geometry.Offsets()}
	if frame != nil {
		event.FrameSeq = frame.Seq
		event.FrameWidth = frame.Width
		event.FrameHeight = frame.Height
		event.Boxes = geometry.ScaledBoxes(frame.Width, frame.Height)
	}
	message, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal geometry", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Debug("websocket broadcast queue full, event dropped")
	}
}

// ServeWS переводит запрос в вебсокет и держит соединение до ошибки чтения.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error", zap.Error(err))
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
			return
		}
	}
}

// ClientCount возвращает число подключённых клиентов.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

var _ port.RenderSink = (*Hub)(nil)
