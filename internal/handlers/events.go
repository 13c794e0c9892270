package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"parking_pay_echo/internal/services"
)

type EventsHandler struct {
	relay *services.Relay
}

func NewEventsHandler(relay *services.Relay) *EventsHandler {
	return &EventsHandler{relay: relay}
}

const heartbeatInterval = 15 * time.Second

// Stream serves the real-time channel as Server-Sent Events. Every
// confirmation is delivered as a `payment:confirmed` event; receivers match
// lock_id+order_id against their current session before acting. The
// subscription is torn down deterministically when the client disconnects,
// so reconnecting clients never leak listeners.
func (h *EventsHandler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sub := h.relay.Subscribe()
	defer h.relay.Unsubscribe(sub)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case ev, okRecv := <-sub.C:
			if !okRecv {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: payment:confirmed\ndata: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		case <-heartbeat.C:
			// Comment line keeps proxies from closing an idle stream.
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
