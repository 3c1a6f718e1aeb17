package broadcast

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// DefaultQueueSize bounds a subscriber's delivery queue when no capacity is
// configured.
const DefaultQueueSize = 16

// Subscriber is one live-stream connection's delivery queue. It is owned by
// the hub while registered; the connection handler drains Readings().
type Subscriber struct {
	ID uuid.UUID

	ch   chan pbdmodels.StoredReading
	seq  uint64
	once sync.Once
}

// Readings is the receive side of the delivery queue. The channel is closed
// when the subscriber is deregistered.
func (s *Subscriber) Readings() <-chan pbdmodels.StoredReading {
	return s.ch
}

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// Hub tracks live subscribers and fans each stored reading out to all of
// them. Publishing never blocks and never fails the caller: a subscriber
// whose queue is full silently misses that reading.
type Hub struct {
	queueSize int
	logger    *logger.Logger

	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	nextSeq     uint64

	dropped atomic.Uint64
}

// NewHub creates a hub whose subscribers get delivery queues of the given
// capacity.
func NewHub(queueSize int, log *logger.Logger) *Hub {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize:   queueSize,
		logger:      log,
		subscribers: make(map[uuid.UUID]*Subscriber),
	}
}

// Register adds a new subscriber with a fresh empty queue.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{
		ID: uuid.New(),
		ch: make(chan pbdmodels.StoredReading, h.queueSize),
	}

	h.mu.Lock()
	h.nextSeq++
	sub.seq = h.nextSeq
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	h.logger.Logger.Debug().Str("subscriber_id", sub.ID.String()).Msg("Subscriber registered")
	return sub
}

// Deregister removes a subscriber and closes its queue. Safe to call more
// than once for the same subscriber.
func (h *Hub) Deregister(sub *Subscriber) {
	if sub == nil {
		return
	}

	// Closing under the write lock serializes against in-flight publishes,
	// which enqueue under the read lock.
	h.mu.Lock()
	_, registered := h.subscribers[sub.ID]
	delete(h.subscribers, sub.ID)
	sub.close()
	h.mu.Unlock()

	if registered {
		h.logger.Logger.Debug().Str("subscriber_id", sub.ID.String()).Msg("Subscriber deregistered")
	}
}

// Snapshot returns a copy of the current membership in registration order,
// taken under the registry lock so publishers never iterate a mutating set.
func (h *Hub) Snapshot() []*Subscriber {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
	return subs
}

// Publish delivers a stored reading to every registered subscriber without
// blocking. Delivery is best-effort: a subscriber with a full queue drops
// the reading for that subscriber only. The enqueues happen under the read
// lock, so a concurrent Deregister cannot close a queue mid-send; sends are
// non-blocking, so the lock is never held for long.
func (h *Hub) Publish(reading pbdmodels.StoredReading) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.ch <- reading:
		default:
			h.dropped.Add(1)
			h.logger.Logger.Debug().
				Str("subscriber_id", sub.ID.String()).
				Int64("reading_id", reading.ID).
				Msg("Subscriber queue full, dropping reading")
		}
	}
}

// SubscriberCount reports the current number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped reports how many deliveries have been skipped since startup.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
