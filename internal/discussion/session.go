// Package discussion implements the per-topic conversational thread a
// learner opens from a management consideration or a knowledge-map
// node: strictly serialized turns, streamed replies, diagram
// sub-requests and an explicit persistence round-trip.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
)

// ErrBusy is returned when a send or diagram request arrives while a
// prior turn is still streaming. Turns are strictly serialized; the
// caller retries once the current turn settles.
var ErrBusy = errors.New("discussion: a reply is already in progress")

// ErrEmptyPrompt is returned by RequestDiagram for a blank prompt.
var ErrEmptyPrompt = errors.New("discussion: diagram prompt is empty")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("discussion: session closed")

// Saver persists a topic's transcript. casedoc.Document satisfies it.
type Saver interface {
	SaveDiscussion(topicID string, messages []casedoc.Message) error
}

// State is the session's exclusive turn state.
type State int

const (
	// StateReady accepts new turns.
	StateReady State = iota
	// StateAwaitingReply has a streamed reply in flight.
	StateAwaitingReply
)

const systemInstruction = `You are a clinical tutor discussing one aspect of a teaching case with a learner.
Case: %s
Aspect under discussion: %s
Stay on topic, be rigorous, and keep answers concise.%s`

const diagramInstruction = `Based on the discussion so far, produce a diagram for: %s
Return a JSON object: {"title":"","nodes":[{"id":"","label":""}],"edges":[{"from":"","to":"","label":""}]}`

// Session is one open discussion thread. All methods are safe for
// concurrent use; the state machine guards re-entrant sends.
type Session struct {
	topicID   string
	caseTitle string
	aspect    string
	language  string
	provider  llm.StreamProvider
	model     string

	mu          sync.Mutex
	state       State
	diagramBusy bool
	closed      bool
	messages    []casedoc.Message
	dirty       bool
	draft       string
}

// Config carries the inputs shared by fresh and restored sessions.
type Config struct {
	TopicID   string
	CaseTitle string
	Aspect    string
	Language  string
	Provider  llm.StreamProvider
	Model     string
}

// greeting is the system message that seeds a fresh thread.
func greeting(aspect string) casedoc.Message {
	return casedoc.Message{
		Role:      casedoc.RoleSystem,
		Text:      fmt.Sprintf("Discussion opened: %s. Ask anything about this aspect of the case.", aspect),
		Timestamp: time.Now().UTC(),
	}
}

// Open starts a fresh thread seeded with a system greeting. The
// session starts dirty: nothing has been persisted yet.
func Open(cfg Config) *Session {
	s := newSession(cfg)
	s.messages = []casedoc.Message{greeting(cfg.Aspect)}
	s.dirty = true
	return s
}

// Restore reopens a persisted thread. The history is seeded verbatim
// and replayed as context on every subsequent turn, so the
// continuation is coherent. The session starts clean.
func Restore(cfg Config, history []casedoc.Message) *Session {
	s := newSession(cfg)
	s.messages = append([]casedoc.Message(nil), history...)
	s.dirty = false
	return s
}

func newSession(cfg Config) *Session {
	return &Session{
		topicID:   cfg.TopicID,
		caseTitle: cfg.CaseTitle,
		aspect:    cfg.Aspect,
		language:  cfg.Language,
		provider:  cfg.Provider,
		model:     cfg.Model,
	}
}

// TopicID returns the topic this session is anchored to.
func (s *Session) TopicID() string { return s.topicID }

// State returns the current exclusive turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether the transcript has changed since the last
// persist.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Messages returns a snapshot of the transcript.
func (s *Session) Messages() []casedoc.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]casedoc.Message(nil), s.messages...)
}

func (s *Session) systemMessage() llm.Message {
	lang := ""
	if s.language != "" {
		lang = fmt.Sprintf(" Answer in %s.", s.language)
	}
	return llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemInstruction, s.caseTitle, s.aspect, lang),
	}
}

// transcript converts the message list into request context. System
// transcript entries (greetings, error notices) are UI artifacts and
// are not replayed to the model.
func (s *Session) transcript() []llm.Message {
	msgs := []llm.Message{s.systemMessage()}
	for _, m := range s.messages {
		switch m.Role {
		case casedoc.RoleUser:
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: m.Text})
		case casedoc.RoleAssistant:
			if m.Text != "" {
				msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: m.Text})
			}
		}
	}
	return msgs
}

func (s *Session) appendLocked(m casedoc.Message) {
	s.messages = append(s.messages, m)
	s.dirty = true
}

// failureText maps a transport error to the in-transcript notice,
// distinguishing service availability from generic failures.
func failureText(err error) string {
	if llm.IsUnavailable(err) {
		return "The tutoring service is currently unavailable. Check the backend credential and try again."
	}
	return "Something went wrong while answering. Please try again."
}

// Send appends a user turn and streams the reply into an assistant
// placeholder message, applying deltas in arrival order. It returns
// ErrBusy while a prior turn is in flight and never propagates
// transport failures: those become a system-role transcript message.
// onDelta, if non-nil, observes the placeholder's full text after each
// applied delta.
func (s *Session) Send(ctx context.Context, text string, onDelta func(full string)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateAwaitingReply {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateAwaitingReply
	s.appendLocked(casedoc.Message{Role: casedoc.RoleUser, Text: text, Timestamp: time.Now().UTC()})
	req := llm.CompletionRequest{Model: s.model, Messages: s.transcript(), Temperature: 0.7}
	// Empty placeholder the stream progressively fills; consumers
	// always see one coherent in-progress message.
	s.appendLocked(casedoc.Message{Role: casedoc.RoleAssistant, Timestamp: time.Now().UTC()})
	placeholder := len(s.messages) - 1
	s.mu.Unlock()

	ch, err := s.provider.CompleteStream(ctx, req)
	if err != nil {
		s.recoverTurn(placeholder, err)
		return nil
	}

	for ev := range ch {
		if ev.Err != nil {
			s.recoverTurn(placeholder, ev.Err)
			return nil
		}
		if ev.Done {
			break
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		s.messages[placeholder].Text += ev.Delta
		full := s.messages[placeholder].Text
		s.mu.Unlock()
		if onDelta != nil {
			onDelta(full)
		}
	}

	s.mu.Lock()
	if !s.closed {
		s.state = StateReady
		s.dirty = true
	}
	s.mu.Unlock()
	return nil
}

// recoverTurn converts a failed turn into a visible system message and
// returns the session to Ready. An empty placeholder is removed; a
// partially-streamed reply is kept. A closed session abandons the turn.
func (s *Session) recoverTurn(placeholder int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.messages[placeholder].Text == "" && placeholder == len(s.messages)-1 {
		s.messages = s.messages[:placeholder]
	}
	s.messages = append(s.messages, casedoc.Message{
		Role:      casedoc.RoleSystem,
		Text:      failureText(err),
		Timestamp: time.Now().UTC(),
	})
	s.dirty = true
	s.state = StateReady
}

// RequestDiagram asks for a diagram of the given prompt, carrying the
// full transcript as context. It overlays the session (diagram-busy)
// without blocking further diagram state reads, but is rejected while
// a reply is streaming.
func (s *Session) RequestDiagram(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateAwaitingReply {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.diagramBusy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.diagramBusy = true
	s.appendLocked(casedoc.Message{
		Role:      casedoc.RoleSystem,
		Text:      "Generating diagram: " + prompt,
		Timestamp: time.Now().UTC(),
	})
	req := llm.CompletionRequest{
		Model:    s.model,
		Messages: append(s.transcript(), llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf(diagramInstruction, prompt)}),
		JSONMode: true,
	}
	s.mu.Unlock()

	resp, err := s.provider.Complete(ctx, req)
	var graph *casedoc.DiagramGraph
	if err == nil {
		graph, err = casedoc.ParseDiagram(resp.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagramBusy = false
	if s.closed {
		return nil
	}
	if err != nil {
		s.appendLocked(casedoc.Message{
			Role:      casedoc.RoleSystem,
			Text:      "Diagram generation failed: " + failureText(err),
			Timestamp: time.Now().UTC(),
		})
		return nil
	}
	s.appendLocked(casedoc.Message{
		Role:      casedoc.RoleAssistant,
		Text:      "Here is the diagram for: " + prompt,
		Diagram:   graph,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// DiagramBusy reports whether a diagram sub-request is in flight.
func (s *Session) DiagramBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagramBusy
}

// Persist hands the transcript to the saver and marks the session
// clean.
func (s *Session) Persist(saver Saver) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	snapshot := append([]casedoc.Message(nil), s.messages...)
	s.mu.Unlock()

	if err := saver.SaveDiscussion(s.topicID, snapshot); err != nil {
		return fmt.Errorf("persisting discussion %s: %w", s.topicID, err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Close discards the session's in-memory state. Persisted transcripts
// are unaffected; unpersisted ones are gone.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.messages = nil
	s.draft = ""
}
