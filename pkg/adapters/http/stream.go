package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// StreamManager fans delivered messages out to SSE subscribers of their
// session. It implements ports.Transport, so a Bot can deliver into it.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // session ID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for a session's messages. The returned
// function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of subscribers of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Deliver broadcasts msg to the subscribers of msg.SessionID. Slow clients
// drop messages rather than block the turn.
func (sm *StreamManager) Deliver(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[msg.SessionID] {
		select {
		case ch <- data:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_id", msg.SessionID)
		}
	}
	return nil
}

// subscribeEvents handles GET /v1/sessions/{id}/events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
		return
	}

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE: client subscribed", "session_id", id)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
