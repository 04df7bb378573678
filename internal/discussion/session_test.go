package discussion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
)

// fakeTutor is a controllable StreamProvider. Each streamed reply
// emits deltas, optionally parking behind release until the test
// lets it finish.
type fakeTutor struct {
	mu          sync.Mutex
	deltas      []string
	streamErr   error
	setupErr    error
	release     chan struct{}
	completeRes string
	completeErr error
	requests    []llm.CompletionRequest
}

func (f *fakeTutor) Name() string { return "fake-tutor" }

func (f *fakeTutor) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	res, err := f.completeRes, f.completeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: res}, nil
}

func (f *fakeTutor) CompleteStream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	deltas := append([]string(nil), f.deltas...)
	streamErr := f.streamErr
	setupErr := f.setupErr
	release := f.release
	f.mu.Unlock()

	if setupErr != nil {
		return nil, setupErr
	}

	out := make(chan llm.StreamEvent)
	go func() {
		defer close(out)
		if release != nil {
			<-release
		}
		for _, d := range deltas {
			out <- llm.StreamEvent{Delta: d}
		}
		if streamErr != nil {
			out <- llm.StreamEvent{Err: streamErr}
			return
		}
		out <- llm.StreamEvent{Done: true}
	}()
	return out, nil
}

func (f *fakeTutor) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testConfig(p llm.StreamProvider) Config {
	return Config{
		TopicID:   "consideration-0",
		CaseTitle: "Acute Pancreatitis",
		Aspect:    "Fluid resuscitation",
		Provider:  p,
	}
}

func TestOpenSeedsGreeting(t *testing.T) {
	s := Open(testConfig(&fakeTutor{}))
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Role != casedoc.RoleSystem {
		t.Fatalf("expected a single system greeting, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "Fluid resuscitation") {
		t.Errorf("greeting should name the aspect: %q", msgs[0].Text)
	}
	if !s.Dirty() {
		t.Error("fresh session has never been persisted and should be dirty")
	}
}

func TestSendStreamsIntoPlaceholder(t *testing.T) {
	tutor := &fakeTutor{deltas: []string{"Crystalloid ", "at 1.5 ", "ml/kg/h."}}
	s := Open(testConfig(tutor))

	var seen []string
	err := s.Send(context.Background(), "How much fluid?", func(full string) {
		seen = append(seen, full)
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != casedoc.RoleAssistant {
		t.Fatalf("expected assistant reply last, got %s", last.Role)
	}
	if last.Text != "Crystalloid at 1.5 ml/kg/h." {
		t.Errorf("deltas misapplied: %q", last.Text)
	}
	// Each observation extends the previous one: one coherent
	// in-progress message, never a reordered or split list.
	for i := 1; i < len(seen); i++ {
		if !strings.HasPrefix(seen[i], seen[i-1]) {
			t.Errorf("delta application out of order: %q then %q", seen[i-1], seen[i])
		}
	}
	if s.State() != StateReady {
		t.Error("session should be ready after the stream completes")
	}
}

func TestSecondSendWhileAwaitingIsRejected(t *testing.T) {
	release := make(chan struct{})
	tutor := &fakeTutor{deltas: []string{"slow reply"}, release: release}
	s := Open(testConfig(tutor))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Send(context.Background(), "first", nil)
	}()

	// Wait until the first turn is in flight.
	deadline := time.After(5 * time.Second)
	for s.State() != StateAwaitingReply {
		select {
		case <-deadline:
			t.Fatal("first turn never entered AwaitingReply")
		case <-time.After(2 * time.Millisecond):
		}
	}

	if err := s.Send(context.Background(), "second", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("second send must be rejected with ErrBusy, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first send: %v", err)
	}

	if tutor.requestCount() != 1 {
		t.Errorf("exactly one outstanding request allowed, saw %d", tutor.requestCount())
	}
	var userTurns int
	for _, m := range s.Messages() {
		if m.Role == casedoc.RoleUser {
			userTurns++
		}
	}
	if userTurns != 1 {
		t.Errorf("rejected send must not append a user message, got %d", userTurns)
	}
}

func TestSendFailureBecomesSystemMessage(t *testing.T) {
	tutor := &fakeTutor{setupErr: errors.New("401 unauthorized")}
	s := Open(testConfig(tutor))

	if err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("failures must not escape the session boundary: %v", err)
	}

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != casedoc.RoleSystem {
		t.Fatalf("expected system error message, got %s: %q", last.Role, last.Text)
	}
	if !strings.Contains(last.Text, "unavailable") {
		t.Errorf("auth failures should surface the service-unavailable wording: %q", last.Text)
	}
	for _, m := range msgs {
		if m.Role == casedoc.RoleAssistant && m.Text == "" {
			t.Error("empty placeholder should be removed on failure")
		}
	}
	if s.State() != StateReady {
		t.Error("session must return to Ready after a failed turn")
	}

	// Generic failures get the generic wording.
	tutor2 := &fakeTutor{streamErr: errors.New("boom")}
	s2 := Open(testConfig(tutor2))
	_ = s2.Send(context.Background(), "hello", nil)
	last2 := s2.Messages()[len(s2.Messages())-1]
	if strings.Contains(last2.Text, "unavailable") {
		t.Errorf("generic failure should not claim unavailability: %q", last2.Text)
	}
}

func TestRestoredSessionContinuity(t *testing.T) {
	persisted := []casedoc.Message{
		{Role: casedoc.RoleSystem, Text: "Discussion opened: Fluid resuscitation."},
		{Role: casedoc.RoleUser, Text: "Why aggressive fluids?"},
		{Role: casedoc.RoleAssistant, Text: "Third-spacing causes hypovolaemia."},
	}
	tutor := &fakeTutor{deltas: []string{"Because of ", "pancreatic necrosis risk."}}
	s := Restore(testConfig(tutor), persisted)

	if s.Dirty() {
		t.Error("restored session starts clean")
	}

	if err := s.Send(context.Background(), "And the risk?", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != len(persisted)+2 {
		t.Fatalf("expected persisted history plus one turn, got %d messages", len(msgs))
	}
	for i, want := range persisted {
		if msgs[i].Text != want.Text || msgs[i].Role != want.Role {
			t.Errorf("persisted message %d altered: %+v", i, msgs[i])
		}
	}
	if !s.Dirty() {
		t.Error("session should be dirty after a new turn")
	}

	// The replayed history must reach the model as context.
	tutor.mu.Lock()
	req := tutor.requests[0]
	tutor.mu.Unlock()
	var sawReplay bool
	for _, m := range req.Messages {
		if m.Role == llm.RoleAssistant && strings.Contains(m.Content, "Third-spacing") {
			sawReplay = true
		}
	}
	if !sawReplay {
		t.Error("restored history was not replayed into the request context")
	}

	// Persist marks clean again.
	doc := &casedoc.Document{}
	if err := s.Persist(doc); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if s.Dirty() {
		t.Error("session should be clean after persist")
	}
	if got := doc.Discussion("consideration-0"); len(got) != len(msgs) {
		t.Errorf("persisted transcript truncated: %d != %d", len(got), len(msgs))
	}
}

func TestRequestDiagram(t *testing.T) {
	tutor := &fakeTutor{
		completeRes: `{"title":"Fluids","nodes":[{"id":"a","label":"Assess"},{"id":"b","label":"Bolus"}],"edges":[{"from":"a","to":"b"}]}`,
	}
	s := Open(testConfig(tutor))

	if err := s.RequestDiagram(context.Background(), "  "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("blank prompt must be rejected, got %v", err)
	}

	if err := s.RequestDiagram(context.Background(), "fluid algorithm"); err != nil {
		t.Fatalf("RequestDiagram: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting + notice + diagram, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Text, "Generating diagram: fluid algorithm") {
		t.Errorf("missing generating notice: %q", msgs[1].Text)
	}
	if msgs[2].Role != casedoc.RoleAssistant || msgs[2].Diagram == nil {
		t.Fatalf("expected assistant message with diagram, got %+v", msgs[2])
	}
	if len(msgs[2].Diagram.Nodes) != 2 {
		t.Errorf("diagram content lost: %+v", msgs[2].Diagram)
	}
	if s.DiagramBusy() {
		t.Error("diagram overlay should clear on completion")
	}
}

func TestRequestDiagramFailureIsLocal(t *testing.T) {
	tutor := &fakeTutor{completeErr: errors.New("boom")}
	s := Open(testConfig(tutor))

	if err := s.RequestDiagram(context.Background(), "pathway"); err != nil {
		t.Fatalf("diagram failures must not escape: %v", err)
	}
	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != casedoc.RoleSystem || !strings.Contains(last.Text, "Diagram generation failed") {
		t.Errorf("expected failure notice, got %+v", last)
	}
	if s.DiagramBusy() {
		t.Error("diagram overlay should clear on failure")
	}
	if s.State() != StateReady {
		t.Error("chat turn state must be unaffected by diagram failure")
	}
}

func TestCloseDuringStreamAbandonsTurn(t *testing.T) {
	release := make(chan struct{})
	tutor := &fakeTutor{deltas: []string{"partial ", "reply"}, release: release}
	s := Open(testConfig(tutor))

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "question", nil)
	}()

	deadline := time.After(5 * time.Second)
	for s.State() != StateAwaitingReply {
		select {
		case <-deadline:
			t.Fatal("turn never entered AwaitingReply")
		case <-time.After(2 * time.Millisecond):
		}
	}

	// Close mid-stream, then let the deltas arrive. The in-flight turn
	// must abandon quietly instead of touching the dropped transcript.
	s.Close()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("abandoned turn must not surface an error: %v", err)
	}
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("closed session must stay empty, got %d messages", len(got))
	}
}

func TestCloseDuringStreamFailureAbandonsTurn(t *testing.T) {
	release := make(chan struct{})
	tutor := &fakeTutor{streamErr: errors.New("boom"), release: release}
	s := Open(testConfig(tutor))

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "question", nil)
	}()

	deadline := time.After(5 * time.Second)
	for s.State() != StateAwaitingReply {
		select {
		case <-deadline:
			t.Fatal("turn never entered AwaitingReply")
		case <-time.After(2 * time.Millisecond):
		}
	}

	s.Close()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("abandoned turn must not surface an error: %v", err)
	}
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("closed session must not record a failure notice, got %d messages", len(got))
	}
}

func TestCloseDropsState(t *testing.T) {
	s := Open(testConfig(&fakeTutor{}))
	s.Close()
	if err := s.Send(context.Background(), "hi", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Persist(&casedoc.Document{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from persist, got %v", err)
	}
}
