package hub

import (
	"sync"

	"github.com/google/uuid"

	"agrotrace/internal/logger"
	"agrotrace/internal/metrics"
	"agrotrace/internal/models"
)

const defaultBuffer = 32

// Scope is the authorization boundary attached to a subscriber at connect
// time. An event passes when its company or sensor appears in the scope,
// or when AllowAll is set (operator accounts).
type Scope struct {
	AllowAll  bool
	Companies []int
	Sensors   []int
}

// Allows reports whether the scope may observe the event.
func (s Scope) Allows(ev models.Event) bool {
	if s.AllowAll {
		return true
	}
	for _, c := range s.Companies {
		if c == ev.CompanyID {
			return true
		}
	}
	for _, id := range s.Sensors {
		if id == ev.SensorID {
			return true
		}
	}
	return false
}

// Subscriber is one live delivery channel. It is owned by the hub from
// Subscribe until Unsubscribe; the consumer only reads Events().
type Subscriber struct {
	id    string
	scope Scope
	ch    chan models.Event
}

// ID returns the connection id assigned at subscribe time.
func (s *Subscriber) ID() string { return s.id }

// Events is the subscriber's receive channel. It is closed on Unsubscribe.
func (s *Subscriber) Events() <-chan models.Event { return s.ch }

// Hub fans live events out to subscribers. Delivery is best-effort: each
// subscriber sits behind its own bounded buffer and a full buffer drops the
// oldest pending event for that subscriber only. The hub keeps no event log;
// a reconnecting client gets no replay.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	buffer int
	log    *logger.Logger
}

func New(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]*Subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new delivery channel under the given scope.
func (h *Hub) Subscribe(scope Scope) *Subscriber {
	sub := &Subscriber{
		id:    uuid.NewString(),
		scope: scope,
		ch:    make(chan models.Event, h.buffer),
	}
	h.mu.Lock()
	h.subs[sub.id] = sub
	n := len(h.subs)
	h.mu.Unlock()

	if h.log != nil {
		h.log.Infow("subscriber_connected", "id", sub.id, "total", n)
	}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// more than once for the same id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(sub.ch)
	if h.log != nil {
		h.log.Infow("subscriber_disconnected", "id", id, "total", n)
	}
}

// Publish delivers the event to every subscriber whose scope covers it.
// Sends never block: a full buffer sheds the subscriber's oldest pending
// event to make room. Publish holds the read lock for the whole fan-out so
// Unsubscribe cannot close a channel mid-send.
func (h *Hub) Publish(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.scope.Allows(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			metrics.BroadcastDelivered.Inc()
		default:
			// drop oldest pending, then retry once
			select {
			case <-sub.ch:
				metrics.BroadcastDropped.Inc()
			default:
			}
			select {
			case sub.ch <- ev:
				metrics.BroadcastDelivered.Inc()
			default:
				metrics.BroadcastDropped.Inc()
			}
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
