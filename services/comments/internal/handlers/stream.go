package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/comment-board/internal/platform/api"
	"github.com/example/comment-board/internal/platform/httpserver"
	"github.com/example/comment-board/services/comments/internal/thread"
)

const DefaultHeartbeat = 25 * time.Second

type Subscriber interface {
	Subscribe() (<-chan thread.Event, func())
}

// StreamEvents serves the broadcast topic as Server-Sent Events. Each event is
// written with its wire name as the SSE event type.
func StreamEvents(hub Subscriber, heartbeat time.Duration, log *zap.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		flusher, ok := w.(http.Flusher)
		if !ok {
			api.WriteError(w, http.StatusNotImplemented, "STREAMING_UNSUPPORTED", "Streaming unsupported", rid, nil)
			return
		}

		events, cancel := hub.Subscribe()
		defer cancel()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					log.Warn("stream encode", zap.String("event", ev.Name), zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Name, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
