package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/observability"
)

// Gateway fans captured traffic events out to every open live-feed
// connection. It is constructed once at process start and passed by
// reference to the capture middleware and the websocket handler; there is no
// package-level instance.
//
// One mutex guards both the subscriber set and the backlog ring. Because
// Subscribe snapshots the ring and registers in a single critical section,
// an event published concurrently lands either in the snapshot or in the
// subscriber's queue as an update, never both and never neither.
type Gateway struct {
	logger      *slog.Logger
	backlogSize int
	queueSize   int

	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	backlog []domain.TrafficEvent
}

func NewGateway(logger *slog.Logger, backlogSize, queueSize int) *Gateway {
	if backlogSize <= 0 {
		backlogSize = 100
	}
	return &Gateway{
		logger:      logger,
		backlogSize: backlogSize,
		queueSize:   queueSize,
		subs:        make(map[*Subscriber]struct{}),
		backlog:     make([]domain.TrafficEvent, 0, backlogSize),
	}
}

// Seed preloads the backlog ring with persisted events, oldest first. Called
// once at startup before the gateway is reachable.
func (g *Gateway) Seed(events []domain.TrafficEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(events) > g.backlogSize {
		events = events[len(events)-g.backlogSize:]
	}
	g.backlog = append(g.backlog[:0], events...)
}

// Publish appends the event to the backlog and delivers it to every OPEN
// subscriber in global arrival order. Delivery per subscriber is
// best-effort: a full queue is skipped without delaying peers.
func (g *Gateway) Publish(event domain.TrafficEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.backlog) == g.backlogSize {
		copy(g.backlog, g.backlog[1:])
		g.backlog = g.backlog[:g.backlogSize-1]
	}
	g.backlog = append(g.backlog, event)

	ev := event
	msg := Message{Type: MessageTypeUpdate, Log: &ev}
	for sub := range g.subs {
		if sub.State() != StateOpen {
			continue
		}
		if !sub.enqueue(msg) {
			observability.RecordBroadcastDrop(context.Background())
			g.logger.Warn("live feed subscriber not writable, skipping",
				"username", sub.Username,
			)
		}
	}
}

// Subscribe atomically snapshots the backlog and registers the connection.
// The initial frame is queued before any subsequent update can be, so each
// subscriber observes a gap-free, duplicate-free ordered stream from its
// connection point onward.
func (g *Gateway) Subscribe(username string) *Subscriber {
	sub := newSubscriber(username, g.queueSize)

	g.mu.Lock()
	snapshot := make([]domain.TrafficEvent, len(g.backlog))
	copy(snapshot, g.backlog)
	sub.setState(StateOpen)
	g.subs[sub] = struct{}{}
	// The queue is freshly created, so the initial frame always fits.
	sub.enqueue(Message{Type: MessageTypeInitial, Logs: snapshot})
	g.mu.Unlock()

	observability.RecordFeedSubscription(context.Background(), "subscribe")
	return sub
}

// Unsubscribe removes the connection synchronously and marks it CLOSED.
func (g *Gateway) Unsubscribe(sub *Subscriber) {
	g.mu.Lock()
	delete(g.subs, sub)
	g.mu.Unlock()
	sub.Close()
	observability.RecordFeedSubscription(context.Background(), "unsubscribe")
}

func (g *Gateway) SubscriberCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}
