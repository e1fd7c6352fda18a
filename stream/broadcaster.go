package stream

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/zerok-ai/zk-console-feed/metrics"
	"github.com/zerok-ai/zk-console-feed/model"
)

var podIp = os.Getenv("POD_IP")

// broadcaster fans decoded action events out to console stream subscribers.
// Every subscriber gets its own bounded channel; a full channel loses its
// oldest queued event so a slow console tab can never stall the run loop.
type broadcaster struct {
	mutex       sync.Mutex
	subscribers map[string]chan model.ActionEvent
	bufferSize  int
}

func newBroadcaster(bufferSize int) *broadcaster {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &broadcaster{
		subscribers: make(map[string]chan model.ActionEvent),
		bufferSize:  bufferSize,
	}
}

func (b *broadcaster) Subscribe() (string, <-chan model.ActionEvent) {
	id := uuid.New().String()
	ch := make(chan model.ActionEvent, b.bufferSize)
	b.mutex.Lock()
	b.subscribers[id] = ch
	b.mutex.Unlock()
	return id, ch
}

func (b *broadcaster) Unsubscribe(id string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *broadcaster) Publish(event model.ActionEvent) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
			continue
		default:
		}
		select {
		case <-ch:
			metrics.TotalDownstreamEventsDropped.WithLabelValues(podIp).Inc()
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}
}

// CloseAll ends every subscription. The broadcaster stays usable for
// subscriptions opened afterwards.
func (b *broadcaster) CloseAll() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *broadcaster) SubscriberCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subscribers)
}
