package realtime

import (
	"sync"

	"github.com/site-analyzer/portal/internal/domain"
)

// Message is one frame on the live feed. "initial" carries the backlog
// snapshot, "update" carries a single freshly captured event.
type Message struct {
	Type string                `json:"type"`
	Logs []domain.TrafficEvent `json:"logs,omitempty"`
	Log  *domain.TrafficEvent  `json:"log,omitempty"`
}

const (
	MessageTypeInitial = "initial"
	MessageTypeUpdate  = "update"
)

// ConnState tracks the per-connection lifecycle. CLOSED is terminal; a new
// handshake is required to reconnect.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAdmitted
	StateOpen
	StateClosed
)

// Subscriber is one admitted live-feed connection.
//
// The send queue is intentionally never closed by the gateway so concurrent
// publishers can never panic on it; done signals teardown instead, and Close
// is idempotent.
type Subscriber struct {
	Username string

	send chan Message
	done chan struct{}

	mu        sync.Mutex
	state     ConnState
	closeOnce sync.Once
}

func newSubscriber(username string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Subscriber{
		Username: username,
		send:     make(chan Message, queueSize),
		done:     make(chan struct{}),
		state:    StateAdmitted,
	}
}

// Messages is the ordered stream of frames for this connection.
func (s *Subscriber) Messages() <-chan Message { return s.send }

func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscriber) setState(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = state
}

// Close marks the connection CLOSED and signals teardown (idempotent). It
// does not close the send queue.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
	})
}

// enqueue delivers without ever blocking the caller. A full queue or a
// closed subscriber drops the frame for this subscriber only.
func (s *Subscriber) enqueue(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}
