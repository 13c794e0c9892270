package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"parking_pay_echo/internal/models"
)

// Event is a payment confirmation broadcast to connected clients. Receivers
// match LockID+OrderID against the session they are displaying and ignore
// events for sessions they no longer care about.
type Event struct {
	LockID      string                    `json:"lock_id"`
	OrderID     string                    `json:"order_id"`
	Amount      int64                     `json:"amount"`
	Source      models.ConfirmationSource `json:"source"`
	ConfirmedAt time.Time                 `json:"confirmed_at"`
}

// Subscription is a handle to one client's event feed. The channel is
// closed on Unsubscribe (or relay Close); receivers must treat a closed
// channel as end of stream.
type Subscription struct {
	id     uint64
	C      chan Event
	closed bool
}

// Relay fans out confirmation events to every connected subscriber.
// Delivery is best-effort and at-most-once per subscriber: a full
// subscriber buffer drops the event for that subscriber only, and clients
// that miss a broadcast fall back to polling the confirmation store.
type Relay struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	logger *zap.Logger
}

// subscriberBuffer is small on purpose; one client only ever cares about a
// handful of in-flight confirmations.
const subscriberBuffer = 8

func NewRelay(logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new client connection.
func (r *Relay) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &Subscription{
		id: r.nextID,
		C:  make(chan Event, subscriberBuffer),
	}
	r.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel. It is
// idempotent so connection-teardown paths can call it defensively.
func (r *Relay) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	delete(r.subs, sub.id)
	close(sub.C)
}

// Publish delivers an event to every currently connected subscriber
// without blocking. Subscribers whose buffer is full miss the event.
func (r *Relay) Publish(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, sub := range r.subs {
		select {
		case sub.C <- ev:
			delivered++
		default:
			dropped++
		}
	}

	r.logger.Info("broadcast payment:confirmed",
		zap.String("lock_id", ev.LockID),
		zap.String("order_id", ev.OrderID),
		zap.Int("delivered", delivered),
		zap.Int("dropped", dropped),
	)
}

// SubscriberCount reports how many clients are connected.
func (r *Relay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close tears down all subscriptions, ending every client stream.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sub := range r.subs {
		sub.closed = true
		close(sub.C)
		delete(r.subs, id)
	}
}
