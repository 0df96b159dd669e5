package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type StreamHandler struct {
	svc      Service
	upgrader websocket.Upgrader
}

func NewStreamHandler(svc Service) *StreamHandler {
	return &StreamHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// CORS is enforced at the HTTP layer for the REST routes; the
				// stream accepts any origin and carries no credentials.
				return true
			},
		},
	}
}

// StreamCampaign upgrades to a websocket and forwards stage events until the
// run finishes or the client disconnects.
func (h *StreamHandler) StreamCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignID"]

	events, err := h.svc.Subscribe(campaignID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Str("campaign_id", campaignID).Msg("stream client gone")
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
}
