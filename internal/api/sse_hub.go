package api

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"phackdemo/domain/core"
	"phackdemo/domain/demo"
	"phackdemo/internal"
	"phackdemo/ports"
)

const (
	clientBuffer    = 64
	broadcastBuffer = 256
	pingInterval    = 30 * time.Second
)

// SSEHub fans demo updates out to Server-Sent Events clients by session
type SSEHub struct {
	clients   map[core.SessionID]map[chan demo.Update]bool
	clientsMu sync.RWMutex
	broadcast chan demo.Update
	done      chan struct{}
	closeOnce sync.Once
	logger    *internal.Logger
}

var _ ports.UpdatePublisher = (*SSEHub)(nil)

// NewSSEHub creates a hub and starts its delivery loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:   make(map[core.SessionID]map[chan demo.Update]bool),
		broadcast: make(chan demo.Update, broadcastBuffer),
		done:      make(chan struct{}),
		logger:    logger.With("SSE"),
	}

	go hub.run()
	return hub
}

func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return
		case update := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[update.SessionID] {
				select {
				case clientChan <- update:
				default:
					h.logger.Warn("client channel full for session %s, skipping %s event",
						update.SessionID, update.EventType)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Publish queues an update for every client of its session
func (h *SSEHub) Publish(update demo.Update) {
	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event", update.EventType)
	}
}

// Subscribe registers a client for a session. The returned function
// unregisters it and closes the channel.
func (h *SSEHub) Subscribe(sessionID core.SessionID) (<-chan demo.Update, func()) {
	ch := make(chan demo.Update, clientBuffer)

	h.clientsMu.Lock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[chan demo.Update]bool)
	}
	h.clients[sessionID][ch] = true
	h.logger.Debug("client registered for session %s (total clients: %d)", sessionID, len(h.clients[sessionID]))
	h.clientsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			if clients, ok := h.clients[sessionID]; ok {
				delete(clients, ch)
				if len(clients) == 0 {
					delete(h.clients, sessionID)
				}
			}
			close(ch)
		})
	}
}

// ClientCount returns the number of active clients for a session
func (h *SSEHub) ClientCount(sessionID core.SessionID) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[sessionID])
}

// Close stops the delivery loop
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stream writes the session's current view as a snapshot event, then its
// updates, until the client disconnects or, when untilTerminal is set, a
// terminal event has been sent. A stream opened after the run has finished
// ends with the snapshot.
func (h *SSEHub) Stream(c *gin.Context, sessionID core.SessionID, snapshot func() (demo.View, error), untilTerminal bool) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	updates, unsubscribe := h.Subscribe(sessionID)
	defer unsubscribe()

	view, err := snapshot()
	if err != nil {
		c.SSEvent("error", gin.H{"error": err.Error()})
		return
	}
	c.SSEvent(string(demo.EventSnapshot), view)
	c.Writer.Flush()
	if untilTerminal && runFinished(view.Phase) {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(string(update.EventType), update)
			return !(untilTerminal && isTerminal(update.EventType))
		case <-ping.C:
			c.SSEvent("ping", gin.H{"status": "alive", "timestamp": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-ctx.Done():
			return false
		case <-h.done:
			return false
		}
	})
}

func runFinished(p demo.Phase) bool {
	return p == demo.PhaseRealityCheck || p == demo.PhaseExplanation
}

func isTerminal(t demo.EventType) bool {
	switch t {
	case demo.EventRealityCheck, demo.EventAborted, demo.EventReset:
		return true
	}
	return false
}
