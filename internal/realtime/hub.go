// Package realtime fans out board and workspace events to connected clients.
package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Message is the envelope broadcast to subscribers. Payload carries the
// event-specific fields keyed by EventType.
type Message struct {
	EventType string         `json:"event_type"`
	BoardID   string         `json:"board_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type subscriber struct {
	userID string
	ch     chan []byte
}

// Hub keeps per-board and per-workspace subscriber sets. Slow subscribers
// have messages dropped rather than blocking the publisher.
type Hub struct {
	mu         sync.RWMutex
	boards     map[string]map[*subscriber]struct{}
	workspaces map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		boards:     make(map[string]map[*subscriber]struct{}),
		workspaces: make(map[string]map[*subscriber]struct{}),
	}
}

func (h *Hub) SubscribeBoard(boardID, userID string) (<-chan []byte, func()) {
	return subscribe(h, h.boards, boardID, userID)
}

func (h *Hub) SubscribeWorkspace(workspaceID, userID string) (<-chan []byte, func()) {
	return subscribe(h, h.workspaces, workspaceID, userID)
}

func subscribe(h *Hub, set map[string]map[*subscriber]struct{}, key, userID string) (<-chan []byte, func()) {
	sub := &subscriber{userID: userID, ch: make(chan []byte, 16)}
	h.mu.Lock()
	if set[key] == nil {
		set[key] = make(map[*subscriber]struct{})
	}
	set[key][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := set[key]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(set, key)
			}
		}
		h.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, cancel
}

// BroadcastBoard sends msg to everyone watching the board except the
// originating user, who already knows what they did.
func (h *Hub) BroadcastBoard(boardID string, msg Message, excludeUserID string) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.BoardID = boardID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.boards[boardID] {
		if sub.userID == excludeUserID {
			continue
		}
		select {
		case sub.ch <- data:
		default:
			// drop if slow
		}
	}
}

func (h *Hub) BroadcastWorkspace(workspaceID string, msg Message, excludeUserID string) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.workspaces[workspaceID] {
		if sub.userID == excludeUserID {
			continue
		}
		select {
		case sub.ch <- data:
		default:
		}
	}
}

// BoardSubscriberCount is used by tests and the health endpoint.
func (h *Hub) BoardSubscriberCount(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boards[boardID])
}
