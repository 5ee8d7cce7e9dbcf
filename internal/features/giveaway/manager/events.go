package manager

import (
	"sync"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

// Event names the lifecycle notifications the registry emits.
type Event string

const (
	EventStarted                    Event = "started"
	EventEnded                      Event = "ended"
	EventEdited                     Event = "edited"
	EventPaused                     Event = "paused"
	EventUnpaused                   Event = "unpaused"
	EventRerolled                   Event = "rerolled"
	EventDeleted                    Event = "deleted"
	EventEntrySignalAdded           Event = "entrySignalAdded"
	EventEntrySignalRemoved         Event = "entrySignalRemoved"
	EventEntrySignalOnEndedGiveaway Event = "entrySignalOnEndedGiveaway"
)

// Payload carries the event data. Giveaway is always set (a private
// copy); Winners accompanies ended and rerolled; Member accompanies the
// entry-signal events.
type Payload struct {
	Giveaway *models.Giveaway
	Winners  []string
	Member   *chat.Member
}

// Handler consumes a lifecycle event. Handlers run synchronously on
// the emitting goroutine and should not block.
type Handler func(event Event, payload Payload)

type emitter struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
}

func (e *emitter) subscribe(event Event, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[Event][]Handler)
	}
	e.handlers[event] = append(e.handlers[event], h)
}

func (e *emitter) emit(event Event, payload Payload) {
	e.mu.RLock()
	handlers := e.handlers[event]
	e.mu.RUnlock()

	for _, h := range handlers {
		h(event, payload)
	}
}

// Subscribe registers a handler for the named lifecycle event.
func (m *Manager) Subscribe(event Event, h Handler) {
	m.events.subscribe(event, h)
}
