package orderfeed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler streams order change events to clients over server-sent events.
type Handler struct {
	logger *slog.Logger
	feed   *Feed
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, feed *Feed) *Handler {
	return &Handler{logger: logger, feed: feed}
}

// MountRoutes registers feed routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.stream)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.feed.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("feed subscribe failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: order-changed\ndata: %s\n\n", event.ID, payload)
			flusher.Flush()
		}
	}
}
