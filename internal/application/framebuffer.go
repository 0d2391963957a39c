package app

import (
	"sync/atomic"

	"whatlooking/internal/domain/entity"
)

// FrameBuffer хранит только последний декодированный кадр.
//
// Store заменяет кадр атомарной подменой указателя, чтение не берёт
// блокировок. Кадр после Store неизменяем, поэтому читатели могут
// держать его сколько угодно. Это не очередь: промежуточные кадры
// между двумя Store теряются.
type FrameBuffer struct {
	slot       atomic.Pointer[entity.Frame]
	unread     atomic.Bool
	seq        atomic.Uint64
	overwrites atomic.Uint64
}

// FrameBufferStats снимок счётчиков буфера.
type FrameBufferStats struct {
	Stored      uint64 // всего сохранено кадров
	Overwritten uint64 // кадров заменено до того, как их кто-то прочитал
}

// NewFrameBuffer создаёт пустой буфер.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Store безусловно заменяет содержимое буфера. Номер присваивается копии
// кадра, переданный кадр не меняется. Пиксели копия делит с оригиналом.
func (b *FrameBuffer) Store(frame *entity.Frame) *entity.Frame {
	if frame == nil {
		return nil
	}
	stored := *frame
	stored.Seq = b.seq.Add(1)
	old := b.slot.Swap(&stored)
	if wasUnread := b.unread.Swap(true); old != nil && wasUnread {
		b.overwrites.Add(1)
	}
	return &stored
}

// Latest возвращает последний кадр или false, если успешных декодирований не было.
func (b *FrameBuffer) Latest() (*entity.Frame, bool) {
	frame := b.slot.Load()
	if frame == nil {
		return nil, false
	}
	b.unread.Store(false)
	return frame, true
}

// Clear освобождает кадр. Используется при остановке узла.
func (b *FrameBuffer) Clear() {
	b.slot.Store(nil)
	b.unread.Store(false)
}

// Stats возвращает счётчики буфера.
func (b *FrameBuffer) Stats() FrameBufferStats {
	return FrameBufferStats{
		Stored:      b.seq.Load(),
		Overwritten: b.overwrites.Load(),
	}
}
