package events

import (
	"sync"

	"mathboard/backend/gamification"
)

// ProgressUpdated is published after a user's progress has been persisted.
type ProgressUpdated struct {
	UserID   string
	Revision int64
	Progress gamification.UserProgress
	Streak   gamification.StreakChange
	Day      gamification.DateKey
}

type Handler func(ProgressUpdated)

// Bus fans events out to subscribers synchronously, in subscription order.
// Handlers run on the publisher's goroutine and must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(e ProgressUpdated) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
