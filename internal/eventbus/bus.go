package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/schema"
)

// DefaultDepth is the per-subscriber buffer size.
const DefaultDepth = 64

// Bus fans out provider notifications to subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan schema.Notification]struct{}
	log    pslog.Logger
	depth  int
	accept func(schema.NotificationType) bool
	closed bool
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	return NewWithDepth(logger, DefaultDepth)
}

// NewWithDepth constructs a Bus whose subscribers buffer depth notifications.
func NewWithDepth(logger pslog.Logger, depth int) *Bus {
	return NewFiltered(logger, depth, nil)
}

// NewFiltered constructs a Bus that only carries notifications whose type
// accept reports true for. A nil accept carries everything.
func NewFiltered(logger pslog.Logger, depth int, accept func(schema.NotificationType) bool) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Bus{
		subs:  make(map[chan schema.Notification]struct{}),
		log:    logger,
		depth:  depth,
		accept: accept,
	}
}

// Subscribe registers a subscriber and returns its channel plus a cancel func.
func (b *Bus) Subscribe() (<-chan schema.Notification, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.Notification, b.depth)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			_, ok := b.subs[ch]
			delete(b.subs, ch)
			b.mu.Unlock()
			if ok {
				close(ch)
			}
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// Publish delivers a notification to every subscriber without blocking.
// Rejected types never occupy a buffer slot, so a full subscriber already
// holds an accepted notification and dropping this one does not lose a refresh.
func (b *Bus) Publish(n schema.Notification) {
	if b == nil {
		return
	}
	if b.accept != nil && !b.accept(n.Type) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return
	}
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- n:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "count", dropped, "type", string(n.Type))
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub)
		delete(b.subs, sub)
	}
}
