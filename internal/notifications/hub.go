package notifications

import (
	"context"
	"errors"
	"sync"

	"chirp/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 5
	// Max total connections
	maxTotalConns = 10000
)

// Errors returned by Register when a connection limit is hit.
var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserLimit   = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("feed hub is shutting down")
)

// FeedHub tracks live feed clients and broadcasts every event to all of them.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perUser map[uint]int
	closed  bool
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Register adds a client for userID. conn may be nil in tests.
func (h *FeedHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerFull
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserLimit
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	h.perUser[userID]++
	observability.FeedConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	if h.perUser[client.UserID]--; h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}
	observability.FeedConnections.Dec()
}

// Count returns the number of connected clients.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *FeedHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// StartWiring subscribes the hub to every event channel through n.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown disconnects every client. Their write pumps send a close frame
// once the send channel is closed.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.Send)
		observability.FeedConnections.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.perUser = make(map[uint]int)
	return nil
}
