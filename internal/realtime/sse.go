package realtime

import (
	"net/http"
	"time"
)

const heartbeatInterval = 25 * time.Second

// ServeBoardSSE streams board events to one client over Server-Sent Events
// until the request context is done.
func (h *Hub) ServeBoardSSE(w http.ResponseWriter, r *http.Request, boardID, userID string) {
	ch, cancel := h.SubscribeBoard(boardID, userID)
	serveSSE(w, r, ch, cancel)
}

// ServeWorkspaceSSE streams workspace-level events such as notifications.
func (h *Hub) ServeWorkspaceSSE(w http.ResponseWriter, r *http.Request, workspaceID, userID string) {
	ch, cancel := h.SubscribeWorkspace(workspaceID, userID)
	serveSSE(w, r, ch, cancel)
}

func serveSSE(w http.ResponseWriter, r *http.Request, ch <-chan []byte, cancel func()) {
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat comments keep the connection alive through proxies.
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
