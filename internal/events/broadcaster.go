// ABOUTME: In-memory fan-out of committed transactions to live subscribers
// ABOUTME: Subscribers filter by written account or receive every event

package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/registry"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Event describes one committed transaction.
type Event struct {
	ID       string           `json:"id"`
	Op       registry.Op      `json:"op"`
	Slot     uint64           `json:"slot"`
	Accounts []address.Pubkey `json:"accounts"`
}

// Touches reports whether the transaction wrote account.
func (e *Event) Touches(account address.Pubkey) bool {
	return slices.Contains(e.Accounts, account)
}

type subscriber struct {
	account address.Pubkey
	ch      chan *Event
}

// Broadcaster delivers published events to matching subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
		logger:      logger.With("component", "events"),
	}
}

// Subscribe registers for events writing account, or all events when account
// is the zero address. The subscription ends when ctx is cancelled, at which
// point the channel is closed.
func (b *Broadcaster) Subscribe(ctx context.Context, account address.Pubkey) (<-chan *Event, string) {
	subID := uuid.NewString()
	ch := make(chan *Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = &subscriber{account: account, ch: ch}
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID, "account", account)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()
	return ch, subID
}

// Publish sends ev to every matching subscriber without blocking.
func (b *Broadcaster) Publish(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.account.IsZero() && !ev.Touches(sub.account) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber", "sub_id", id, "slot", ev.Slot)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(sub.ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.closed = true
	b.logger.Debug("broadcaster closed")
}
