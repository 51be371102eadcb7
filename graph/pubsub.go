package graph

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const TopicBookAdded = "BOOK_ADDED"

var ErrBusClosed = errors.New("event bus closed")

// EventBus fans published payloads out to the subscribers of a topic.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

type Subscription struct {
	bus   *EventBus
	topic string
	ch    chan interface{}
	once  sync.Once
}

func NewEventBus(buffer int) *EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EventBus{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (b *EventBus) Subscribe(topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	s := &Subscription{bus: b, topic: topic, ch: make(chan interface{}, b.buffer)}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][s] = struct{}{}
	return s, nil
}

// Publish delivers payload to every subscriber of topic without blocking and
// returns the number of subscribers that received it.
func (b *EventBus) Publish(topic string, payload interface{}) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for s := range b.subs[topic] {
		select {
		case s.ch <- payload:
			delivered++
		default:
			log.Warn().Str("topic", topic).Msg("subscriber buffer full, event dropped")
		}
	}
	return delivered
}

func (b *EventBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close ends every subscription. Later calls to Subscribe fail with ErrBusClosed.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for s := range subs {
			s.close()
		}
		delete(b.subs, topic)
	}
}

func (s *Subscription) C() <-chan interface{} {
	return s.ch
}

func (s *Subscription) Topic() string {
	return s.topic
}

func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if subs, ok := s.bus.subs[s.topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.subs, s.topic)
		}
	}
	s.close()
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}
