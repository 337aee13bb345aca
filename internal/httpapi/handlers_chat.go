package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/studymate/backend/internal/llm"
	"github.com/studymate/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS layer on the rest of the
	// API; the upgrade itself accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

type chatClientFrame struct {
	Message string `json:"message"`
}

type chatServerFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChat runs the tutoring conversation over a websocket. Each client
// frame is one student message; the reply streams back as "delta" frames
// terminated by "done". The session keeps conversation context for the
// lifetime of the connection.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	study := models.StudyRequest{
		Subject: r.URL.Query().Get("subject"),
		Grade:   r.URL.Query().Get("grade"),
		Chapter: r.URL.Query().Get("chapter"),
	}
	identity := identityFrom(r)

	// One live tutoring session per identity; a second tab has to wait for
	// the first connection to close.
	if _, busy := s.sessions.Get(identity); busy {
		s.writeError(w, http.StatusConflict, "a chat session is already open")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("chat upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	chat := s.chat(llm.TutorSystemPrompt(study))
	s.sessions.Set(identity, chat)
	defer s.sessions.Remove(identity)

	s.log.Info("chat session opened", "identity", identity, "subject", study.Subject)
	for {
		var frame chatClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Error("chat read failed", "identity", identity, "err", err)
			}
			return
		}
		if frame.Message == "" {
			continue
		}

		deltas, errc := chat.SendStream(r.Context(), frame.Message)
		for delta := range deltas {
			if err := conn.WriteJSON(chatServerFrame{Type: "delta", Content: delta}); err != nil {
				return
			}
		}
		if err := <-errc; err != nil {
			s.log.Error("chat turn failed", "identity", identity, "err", err)
			if err := conn.WriteJSON(chatServerFrame{Type: "error", Error: llm.UserMessage(err)}); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(chatServerFrame{Type: "done"}); err != nil {
			return
		}
	}
}
