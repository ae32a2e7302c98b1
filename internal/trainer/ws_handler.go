package trainer

import (
	"net/http"

	"github.com/mlindgren/uttala/internal/server"
)

// HandleWebSocket upgrades the HTTP connection and hands it to the lesson
// message loop. No credentials are required; a resume ticket travels in the
// resume_lesson message itself.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn)
}
