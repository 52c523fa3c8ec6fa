package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/claro-ai/claro/internal/answer"
	"github.com/claro-ai/claro/internal/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string   `json:"type"`       // "ask"
	SessionID string   `json:"session_id"` // empty for new sessions
	UserID    string   `json:"user_id"`
	Content   string   `json:"content"`
	DocIDs    []string `json:"doc_ids,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string            `json:"type"` // "response" or "error"
	SessionID string            `json:"session_id"`
	Content   string            `json:"content"`
	Citations []answer.Citation `json:"citations,omitempty"`
	Degraded  bool              `json:"degraded,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}

		if req.Content == "" {
			s.sendWSError(conn, req.SessionID, "content is required")
			continue
		}
		if req.UserID == "" {
			s.sendWSError(conn, req.SessionID, "user_id is required")
			continue
		}

		switch req.Type {
		case "ask":
			s.handleWSAsk(conn, r, req)
		default:
			s.sendWSError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleWSAsk(conn *websocket.Conn, r *http.Request, req wsRequest) {
	ctx := r.Context()
	sessionID := req.SessionID

	// Create a new session if needed.
	if sessionID == "" {
		sess, err := s.store.CreateSession(ctx, req.UserID)
		if err != nil {
			s.sendWSError(conn, "", "failed to create session: "+err.Error())
			return
		}
		sessionID = sess.ID
	}

	msgs, err := s.store.History(ctx, sessionID, s.cfg.HistoryWindow)
	if err != nil {
		s.sendWSError(conn, sessionID, "failed to load history: "+err.Error())
		return
	}
	history := make([]answer.Turn, len(msgs))
	for i, m := range msgs {
		history[i] = answer.Turn{Role: llm.Role(m.Role), Content: m.Content}
	}

	ans, err := s.pipe.Ask(ctx, req.UserID, req.Content, req.DocIDs, history)
	if err != nil {
		s.sendWSError(conn, sessionID, "question failed: "+err.Error())
		return
	}

	if err := s.store.AppendMessage(ctx, sessionID, string(llm.RoleUser), req.Content); err != nil {
		log.Printf("server: recording user message: %v", err)
	}
	if err := s.store.AppendMessage(ctx, sessionID, string(llm.RoleAssistant), ans.Text); err != nil {
		log.Printf("server: recording assistant message: %v", err)
	}

	s.sendWSResponse(conn, wsResponse{
		Type:      "response",
		SessionID: sessionID,
		Content:   ans.Text,
		Citations: ans.Citations,
		Degraded:  ans.Degraded,
	})
}

func (s *Server) sendWSResponse(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, sessionID, message string) {
	resp := wsResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}
