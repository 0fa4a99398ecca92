package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/housetab/housetab/pkg/middleware"
	"github.com/housetab/housetab/pkg/response"
)

// UserResolver resolves the authenticated user's house code so the handler
// can subscribe them to the shared house channel.
type UserResolver interface {
	HouseCode(r *http.Request, userID int64) (string, error)
}

// Handler streams hub events to clients over Server-Sent Events.
type Handler struct {
	hub      *Hub
	resolver UserResolver
}

// NewHandler creates a new realtime handler
func NewHandler(hub *Hub, resolver UserResolver) *Handler {
	return &Handler{hub: hub, resolver: resolver}
}

// Routes returns the router for realtime endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Stream)
	return r
}

// Stream handles GET /events
// @Summary      Subscribe to negotiation and house events
// @Description  Server-Sent Events stream for the authenticated user's private channels and their house channel
// @Tags         events
// @Produce      text/event-stream
// @Success      200
// @Router       /events [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "Streaming not supported")
		return
	}

	houseCode, err := h.resolver.HouseCode(r, userID)
	if err != nil {
		response.NotFound(w, "Unknown user")
		return
	}

	sub := h.hub.Subscribe(
		UserChannel("payment-approval", userID),
		UserChannel("settlement", userID),
		HouseChannel(houseCode),
	)
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()
		}
	}
}
