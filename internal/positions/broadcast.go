package positions

import "sync"

// UpdateKind tags the four position lifecycle events subscribers observe.
type UpdateKind string

const (
	UpdateOpened         UpdateKind = "opened"
	UpdateUpdated        UpdateKind = "updated"
	UpdateClosed         UpdateKind = "closed"
	UpdateBalanceChanged UpdateKind = "balance_changed"
)

// Update is a single position lifecycle event, fanned out to subscribers
// (dashboard, notification channel) best-effort.
type Update struct {
	Kind       UpdateKind
	PositionID string
	Mint       string
}

const broadcastChannelCapacity = 1000

// Broadcaster fans position updates out to subscribers. Sends are
// non-blocking: a slow or absent subscriber drops updates rather than
// stalling the position monitors.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]chan Update
	nextID      int
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[int]chan Update)}
}

// Subscribe registers a new subscriber channel and returns it plus an
// unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Update, broadcastChannelCapacity)
	b.subscribers[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

// Publish fans out u to every subscriber. Non-blocking: if a subscriber's
// buffer is full, the update is dropped for that subscriber.
func (b *Broadcaster) Publish(u Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
