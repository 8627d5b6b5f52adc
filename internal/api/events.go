package api

import (
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	// DefaultRefreshDelay coalesces change bursts before clients are told
	// to reload.
	DefaultRefreshDelay = time.Second

	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = pingInterval + 10*time.Second
	clientBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RefreshMessage is pushed to admin clients after a burst of changes.
type RefreshMessage struct {
	Type   string   `json:"type"`
	Tables []string `json:"tables"`
}

type liveClient struct {
	send chan RefreshMessage
}

// LiveEvents fans change notifications out to connected admin dashboards.
// Handle is meant to be registered as the realtime handler for every table.
type LiveEvents struct {
	coalescer *realtime.Coalescer

	mu      sync.Mutex
	clients map[*liveClient]struct{}
	pending map[string]struct{}
	closed  bool
}

func NewLiveEvents(delay time.Duration) *LiveEvents {
	l := &LiveEvents{
		clients: make(map[*liveClient]struct{}),
		pending: make(map[string]struct{}),
	}
	l.coalescer = realtime.NewCoalescer(delay, l.flush)
	return l
}

// Handle records a change and restarts the refresh countdown.
func (l *LiveEvents) Handle(event store.ChangeEvent) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending[event.Table] = struct{}{}
	l.mu.Unlock()

	l.coalescer.Trigger()
}

func (l *LiveEvents) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	tables := make([]string, 0, len(l.pending))
	for t := range l.pending {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	l.pending = make(map[string]struct{})

	msg := RefreshMessage{Type: "refresh", Tables: tables}
	for c := range l.clients {
		select {
		case c.send <- msg:
		default:
			// A client that cannot keep up already has a refresh queued.
		}
	}
}

func (l *LiveEvents) register() *liveClient {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	c := &liveClient{send: make(chan RefreshMessage, clientBuffer)}
	l.clients[c] = struct{}{}
	return c
}

func (l *LiveEvents) unregister(c *liveClient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.clients[c]; ok {
		delete(l.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected dashboards.
func (l *LiveEvents) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Close stops pending refreshes and disconnects every client.
func (l *LiveEvents) Close() {
	l.coalescer.Stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for c := range l.clients {
		delete(l.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams refresh messages until the
// client goes away.
func (l *LiveEvents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := l.register()
	if client == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeTimeout))
		return
	}
	defer l.unregister(client)
	log.Printf("[API] Live events client connected (%d total)", l.ClientCount())

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(RefreshMessage{Type: "connected", Tables: store.Tables}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			log.Printf("[API] Live events client disconnected")
			return
		}
	}
}
