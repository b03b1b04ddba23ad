// Package bus carries snapshot notifications from the pollers and the
// launcher to the presentation layer. Publishing never blocks: each
// subscriber has a buffered channel and a message to a full subscriber is
// dropped, so a slow or absent consumer can never stall a poller.
package bus

import (
	"sync"

	"github.com/chatstack/chatpanel/internal/models"
)

// Message is the union of everything the pollers and launcher emit.
// Exactly one field is non-nil.
type Message struct {
	Resource *models.ResourceSnapshot
	Service  *models.ServiceRecord
	Logs     *models.LogChunk
	Launch   *models.LaunchEvent
}

// Bus fans messages out to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []chan Message
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a consumer and returns its receive channel. The
// buffer absorbs bursts; once it is full, further messages to this
// subscriber are dropped until it catches up.
func (b *Bus) Subscribe(buffer int) <-chan Message {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Message, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// PublishResource sends a resource snapshot to all subscribers.
func (b *Bus) PublishResource(s models.ResourceSnapshot) {
	b.publish(Message{Resource: &s})
}

// PublishService sends a service record to all subscribers.
func (b *Bus) PublishService(r models.ServiceRecord) {
	b.publish(Message{Service: &r})
}

// PublishLogs sends a fetched log chunk to all subscribers.
func (b *Bus) PublishLogs(c models.LogChunk) {
	b.publish(Message{Logs: &c})
}

// PublishLaunch sends a launch event to all subscribers.
func (b *Bus) PublishLaunch(ev models.LaunchEvent) {
	b.publish(Message{Launch: &ev})
}

func (b *Bus) publish(m Message) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- m:
		default: // subscriber lagging; drop rather than block the poller
		}
	}
}
