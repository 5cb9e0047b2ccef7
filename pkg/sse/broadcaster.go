package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/api/jsonrpcx"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

const (
	broadcastBuffer   = 1000
	heartbeatInterval = 30 * time.Second
	cleanupInterval   = 30 * time.Second
	staleAfter        = 60 * time.Second
)

// Client represents a connected SSE client
type Client struct {
	ID       string
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan struct{}
	LastSeen time.Time
	mutex    sync.Mutex // Protects concurrent writes to this client
}

// NewClient creates a client bound to an open response stream
func NewClient(w http.ResponseWriter, flusher http.Flusher) *Client {
	return &Client{
		ID:       shared.NewID().String(),
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan struct{}),
		LastSeen: time.Now(),
	}
}

// Broadcaster fans JSON-RPC notifications out to every connected client.
type Broadcaster struct {
	logger    *logger.Logger
	clients   map[string]*Client
	mutex     sync.RWMutex
	broadcast chan []byte
	cleanup   *time.Ticker
	shutdown  chan struct{}
	closeOnce sync.Once
	dropped   uint64
}

// NewBroadcaster creates a broadcaster and starts its background loops
func NewBroadcaster(logger *logger.Logger) *Broadcaster {
	broadcaster := &Broadcaster{
		logger:    logger.WithComponent("sse-broadcaster"),
		clients:   make(map[string]*Client),
		broadcast: make(chan []byte, broadcastBuffer),
		cleanup:   time.NewTicker(cleanupInterval),
		shutdown:  make(chan struct{}),
	}

	go broadcaster.broadcastLoop()
	go broadcaster.cleanupLoop()

	return broadcaster
}

// AddClient adds a new SSE client
func (b *Broadcaster) AddClient(client *Client) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.clients[client.ID] = client

	b.logger.Debug("SSE client connected", zap.String("clientId", client.ID))
}

// RemoveClient removes an SSE client
func (b *Broadcaster) RemoveClient(clientID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.removeLocked(clientID)
}

func (b *Broadcaster) removeLocked(clientID string) {
	client, exists := b.clients[clientID]
	if !exists {
		return
	}

	// wait for an in-flight write so nothing touches the writer after the handler returns
	client.mutex.Lock()
	select {
	case <-client.Done:
	default:
		close(client.Done)
	}
	client.mutex.Unlock()
	delete(b.clients, clientID)

	b.logger.Debug("SSE client disconnected", zap.String("clientId", clientID))
}

// BroadcastToAll queues a notification for every connected client. It never
// blocks; when the queue is full the notification is dropped.
func (b *Broadcaster) BroadcastToAll(notification jsonrpcx.Notification) {
	data, err := json.Marshal(notification)
	if err != nil {
		b.logger.Error("Failed to marshal JSON-RPC notification",
			zap.String("method", notification.Method),
			zap.Error(err))
		return
	}

	select {
	case <-b.shutdown:
		return
	default:
	}

	select {
	case b.broadcast <- data:
	default:
		b.mutex.Lock()
		b.dropped++
		b.mutex.Unlock()
		b.logger.Warn("Broadcast channel full, dropping message",
			zap.String("method", notification.Method))
	}
}

// Notify is shorthand for broadcasting a notification built from method and params
func (b *Broadcaster) Notify(method string, params any) {
	b.BroadcastToAll(jsonrpcx.NewNotification(method, params))
}

// broadcastLoop handles broadcasting messages to all connected clients
func (b *Broadcaster) broadcastLoop() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in broadcastLoop", zap.Any("panic", r))
			go b.broadcastLoop()
		}
	}()

	for {
		select {
		case <-b.shutdown:
			b.logger.Info("Broadcast loop shutting down")
			return
		case data := <-b.broadcast:
			b.mutex.RLock()
			clients := make([]*Client, 0, len(b.clients))
			for _, client := range b.clients {
				clients = append(clients, client)
			}
			b.mutex.RUnlock()

			for _, client := range clients {
				select {
				case <-client.Done:
					b.RemoveClient(client.ID)
				default:
					if err := b.sendToClient(client, data); err != nil {
						b.logger.Warn("Failed to send to client",
							zap.String("clientId", client.ID),
							zap.Error(err))
						b.RemoveClient(client.ID)
					}
				}
			}
		}
	}
}

// sendToClient writes one SSE data frame
func (b *Broadcaster) sendToClient(client *Client, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	if client.Writer == nil || client.Flusher == nil {
		return fmt.Errorf("client stream is not writable")
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	select {
	case <-client.Done:
		return fmt.Errorf("client connection closed")
	default:
	}

	sseData := fmt.Sprintf("data: %s\n\n", data)
	n, err := client.Writer.Write([]byte(sseData))
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(sseData) {
		return fmt.Errorf("incomplete write: wrote %d/%d bytes", n, len(sseData))
	}

	client.Flusher.Flush()
	client.LastSeen = time.Now()
	return nil
}

// cleanupLoop removes stale connections
func (b *Broadcaster) cleanupLoop() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in cleanupLoop", zap.Any("panic", r))
			go b.cleanupLoop()
		}
	}()

	for {
		select {
		case <-b.shutdown:
			return
		case <-b.cleanup.C:
			b.removeStale(time.Now())
		}
	}
}

func (b *Broadcaster) removeStale(now time.Time) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for clientID, client := range b.clients {
		client.mutex.Lock()
		lastSeen := client.LastSeen
		client.mutex.Unlock()

		if now.Sub(lastSeen) > staleAfter {
			b.logger.Debug("Removing stale SSE client", zap.String("clientId", clientID))
			b.removeLocked(clientID)
		}
	}
}

// GetClientCount returns the number of connected clients
func (b *Broadcaster) GetClientCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.clients)
}

// Dropped returns how many notifications were discarded because the queue was full
func (b *Broadcaster) Dropped() uint64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.dropped
}

// Close disconnects every client and stops the background loops
func (b *Broadcaster) Close() {
	b.closeOnce.Do(func() {
		b.logger.Debug("Shutting down SSE broadcaster")

		close(b.shutdown)
		b.cleanup.Stop()

		b.mutex.Lock()
		defer b.mutex.Unlock()

		for clientID := range b.clients {
			b.removeLocked(clientID)
		}
	})
}

// HandleSSE streams notifications to one client until it disconnects
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		b.logger.Error("SSE: Client does not support flusher interface")
		http.Error(w, "Server-Sent Events not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(w, flusher)

	// Write the greeting before registering so it cannot interleave with a broadcast
	initialMsg := fmt.Sprintf("data: {\"type\":\"connected\",\"client_id\":\"%s\"}\n\n", client.ID)
	if _, err := w.Write([]byte(initialMsg)); err != nil {
		b.logger.Warn("Failed to greet SSE client", zap.Error(err))
		return
	}
	flusher.Flush()

	b.AddClient(client)
	defer b.RemoveClient(client.ID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-client.Done:
			return
		case <-r.Context().Done():
			b.logger.Debug("SSE request context cancelled", zap.String("clientId", client.ID))
			return
		case <-b.shutdown:
			return
		case <-heartbeat.C:
			if err := b.sendHeartbeat(client); err != nil {
				b.logger.Warn("Failed to send heartbeat",
					zap.String("clientId", client.ID),
					zap.Error(err))
				return
			}
		}
	}
}

// sendHeartbeat sends a heartbeat message to the SSE client
func (b *Broadcaster) sendHeartbeat(client *Client) error {
	data := fmt.Sprintf(`{"type":"heartbeat","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
	return b.sendToClient(client, []byte(data))
}
