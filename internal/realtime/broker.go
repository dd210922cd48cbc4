package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/metrics"
)

const defaultBuffer = 64

type subscriber struct {
	filter Filter
	ch     chan ChangeEvent
}

// Broker delivers published events to every subscriber whose filter matches.
// A subscriber that does not keep up loses events instead of blocking Publish.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	closed bool
	logger *zap.Logger
}

func NewBroker(buffer int, logger *zap.Logger) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe returns a channel of matching events. The channel is closed when
// ctx is done or the broker is closed.
func (b *Broker) Subscribe(ctx context.Context, filter Filter) <-chan ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ChangeEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{filter: filter, ch: ch}
	metrics.RealtimeSubscribers.Inc()

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch
}

func (b *Broker) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	metrics.RealtimeSubscribers.Dec()
}

func (b *Broker) Publish(ev ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.filter.Match(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			metrics.RealtimeDroppedTotal.WithLabelValues(string(ev.Table)).Inc()
			b.logger.Warn("Subscriber is lagging, dropping change event",
				zap.String("table", string(ev.Table)),
				zap.String("record_id", ev.RecordID))
		}
	}
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
		metrics.RealtimeSubscribers.Dec()
	}
}
