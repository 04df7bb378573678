package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/discussion"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"`    // "open", "message", "diagram" or "persist"
	CaseID  string `json:"case_id"` // saved case the discussion belongs to
	TopicID string `json:"topic_id"`
	Aspect  string `json:"aspect"`
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type     string              `json:"type"` // "opened", "delta", "done", "diagram_done", "persisted" or "error"
	TopicID  string              `json:"topic_id,omitempty"`
	Content  string              `json:"content,omitempty"`
	Messages []discussionMessage `json:"messages,omitempty"`
}

type discussionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// chatConn serializes writes; deltas arrive from the turn goroutine
// while the read loop keeps accepting messages.
type chatConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *chatConn) send(resp chatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (c *chatConn) sendError(topicID, message string) {
	c.send(chatResponse{Type: "error", TopicID: topicID, Content: message})
}

// handleDiscussion runs one discussion session per connection. A turn
// streams its deltas as they arrive; sending again mid-turn is
// rejected, matching the session's exclusive-turn rule.
func (s *Server) handleDiscussion(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	c := &chatConn{conn: conn}
	var (
		sess   *discussion.Session
		caseID string
	)
	defer func() {
		if sess != nil {
			sess.Close()
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError("", "invalid message format")
			continue
		}

		switch req.Type {
		case "open":
			if next := s.openSession(c, req); next != nil {
				if sess != nil {
					sess.Close()
				}
				sess = next
				caseID = req.CaseID
			}
		case "message":
			s.handleTurn(r, c, sess, req)
		case "diagram":
			s.handleDiagram(r, c, sess, req)
		case "persist":
			s.persistSession(c, sess, caseID)
		default:
			c.sendError(req.TopicID, "unknown message type: "+req.Type)
		}
	}
}

// openSession starts or resumes the thread for a topic. A persisted
// transcript on the saved case is restored verbatim so the thread
// continues where it left off. Returns nil when the request is invalid.
func (s *Server) openSession(c *chatConn, req chatRequest) *discussion.Session {
	if req.TopicID == "" {
		c.sendError("", "topic_id is required")
		return nil
	}

	cfg := discussion.Config{
		TopicID:  req.TopicID,
		Aspect:   req.Aspect,
		Provider: s.provider,
		Model:    s.model,
	}

	var sess *discussion.Session
	if doc, ok := s.records.SavedCase(req.CaseID); ok {
		cfg.CaseTitle = doc.Title
		cfg.Language = doc.Language
		if history := doc.Discussion(req.TopicID); len(history) > 0 {
			sess = discussion.Restore(cfg, history)
		}
	}
	if sess == nil {
		sess = discussion.Open(cfg)
	}

	c.send(chatResponse{Type: "opened", TopicID: req.TopicID, Messages: wireMessages(sess)})
	return sess
}

func (s *Server) handleTurn(r *http.Request, c *chatConn, sess *discussion.Session, req chatRequest) {
	if sess == nil {
		c.sendError(req.TopicID, "no open discussion")
		return
	}
	if req.Content == "" {
		c.sendError(sess.TopicID(), "content is required")
		return
	}

	// The turn runs on its own goroutine so the read loop stays
	// responsive; a second message mid-turn gets the busy error below.
	go func() {
		err := sess.Send(r.Context(), req.Content, func(full string) {
			c.send(chatResponse{Type: "delta", TopicID: sess.TopicID(), Content: full})
		})
		if err != nil {
			switch {
			case errors.Is(err, discussion.ErrBusy):
				c.sendError(sess.TopicID(), "a reply is already in progress")
			case errors.Is(err, discussion.ErrClosed):
				c.sendError(sess.TopicID(), "discussion closed")
			default:
				c.sendError(sess.TopicID(), err.Error())
			}
			return
		}
		c.send(chatResponse{Type: "done", TopicID: sess.TopicID(), Messages: wireMessages(sess)})
	}()
}

func (s *Server) handleDiagram(r *http.Request, c *chatConn, sess *discussion.Session, req chatRequest) {
	if sess == nil {
		c.sendError(req.TopicID, "no open discussion")
		return
	}

	go func() {
		err := sess.RequestDiagram(r.Context(), req.Content)
		if err != nil {
			switch {
			case errors.Is(err, discussion.ErrEmptyPrompt):
				c.sendError(sess.TopicID(), "diagram prompt is empty")
			case errors.Is(err, discussion.ErrBusy):
				c.sendError(sess.TopicID(), "a reply is already in progress")
			default:
				c.sendError(sess.TopicID(), err.Error())
			}
			return
		}
		c.send(chatResponse{Type: "diagram_done", TopicID: sess.TopicID(), Messages: wireMessages(sess)})
	}()
}

// persistSession writes the transcript onto its saved case. Only saved
// cases can hold discussions; a transient case must be saved first.
func (s *Server) persistSession(c *chatConn, sess *discussion.Session, caseID string) {
	if sess == nil {
		c.sendError("", "no open discussion")
		return
	}
	doc, ok := s.records.SavedCase(caseID)
	if !ok {
		c.sendError(sess.TopicID(), "save the case before persisting a discussion")
		return
	}
	if err := sess.Persist(doc); err != nil {
		c.sendError(sess.TopicID(), err.Error())
		return
	}
	s.records.SaveCase(doc)
	c.send(chatResponse{Type: "persisted", TopicID: sess.TopicID()})
}

func wireMessages(sess *discussion.Session) []discussionMessage {
	msgs := sess.Messages()
	out := make([]discussionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = discussionMessage{Role: string(m.Role), Text: m.Text}
	}
	return out
}
