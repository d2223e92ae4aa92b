package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/norrisp90/geneticai/internal/metrics"
)

// wsFrame is one message on the chat channel, in either direction.
type wsFrame struct {
	Type    string `json:"type"` // user|assistant|system|error
	Content string `json:"content"`
}

// GET /api/v1/sessions/{id}/ws
//
// Bidirectional chat: one user frame in, one assistant (or error) frame
// out, with a system greeting when the channel opens.
func (h *ChatHandler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "session", sess.ID, "err", err)
		return
	}
	defer conn.Close()

	metrics.IncWSConnections()
	defer metrics.DecWSConnections()

	greeting := wsFrame{
		Type:    "system",
		Content: fmt.Sprintf("Connected to %s. How can I help you?", h.settings.UI.Name),
	}
	if _, err := h.ensureThread(r.Context(), sess); err != nil {
		greeting.Content = failedGreeting
	}
	if err := conn.WriteJSON(greeting); err != nil {
		return
	}

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Error("websocket read failed", "session", sess.ID, "err", err)
			}
			return
		}

		if strings.TrimSpace(frame.Content) == "" {
			_ = conn.WriteJSON(wsFrame{Type: "error", Content: "content is required"})
			continue
		}

		// refresh the idle clock while the conversation is active
		current, err := h.sessions.Get(sess.ID)
		if err != nil {
			_ = conn.WriteJSON(wsFrame{Type: "error", Content: "session expired"})
			return
		}

		threadID, err := h.ensureThread(r.Context(), current)
		if err != nil {
			h.logger.Error("thread bind failed", "session", sess.ID, "err", err)
			_ = conn.WriteJSON(wsFrame{Type: "error", Content: err.Error()})
			continue
		}

		reply, err := h.agent.Ask(r.Context(), threadID, frame.Content)
		if err != nil {
			h.logger.Error("agent ask failed", "session", sess.ID, "err", err)
			_ = conn.WriteJSON(wsFrame{Type: "error", Content: err.Error()})
			continue
		}

		if err := conn.WriteJSON(wsFrame{Type: "assistant", Content: reply}); err != nil {
			return
		}
	}
}
