package generate

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

const (
	goodCore = `{"title":"Test Case","patient_profile":"P","presenting_complaint":"C","clinical_history":"H"}`
	goodMain = `{"connections":[{"discipline":"Radiology","relevance":"imaging"}],
		"pathway_diagram":{"nodes":[{"id":"a","label":"A"},{"id":"b","label":"B"}],"edges":[{"from":"a","to":"b"}]}}`
	goodManagement = `{"considerations":[{"aspect":"Fluids","detail":"balanced crystalloid"}],
		"educational_content":[{"heading":"Pathophysiology","body":"..."}]}`
	goodEvidence = `{"evidence":[{"claim":"early antibiotics improve outcomes"}],
		"further_readings":[{"title":"Surviving Sepsis"}],
		"quiz":[{"question":"Q","options":["a","b"],"answer":1}]}`
	goodMap = `{"nodes":[{"id":"n1","label":"One","summary":"s"},{"id":"n2","label":"Two","summary":"s"}],
		"links":[{"source":"n1","target":"n2","label":"relates"},{"source":"n1","target":"ghost"}]}`
)

// stageProvider routes requests to canned per-stage responses, with
// optional per-stage errors and gates for controlling resolution order.
type stageProvider struct {
	mu          sync.Mutex
	responses   map[Section]string
	responseFor func(section Section, prompt string) (string, bool)
	fail        map[Section]error
	gates       map[Section]chan struct{}
	coreErr     error
	coreBody    string
	calls       []Section
}

func newStageProvider() *stageProvider {
	return &stageProvider{
		coreBody: goodCore,
		responses: map[Section]string{
			SectionMainDetails:  goodMain,
			SectionManagement:   goodManagement,
			SectionEvidence:     goodEvidence,
			SectionKnowledgeMap: goodMap,
		},
		fail:  map[Section]error{},
		gates: map[Section]chan struct{}{},
	}
}

func (p *stageProvider) Name() string { return "stage" }

func classifyPrompt(prompt string) (Section, bool) {
	switch {
	case strings.Contains(prompt, "Create the core"):
		return "", false
	case strings.Contains(prompt, "concept map"):
		return SectionKnowledgeMap, true
	case strings.Contains(prompt, "pathway_diagram"):
		return SectionMainDetails, true
	case strings.Contains(prompt, "considerations"):
		return SectionManagement, true
	case strings.Contains(prompt, "quiz"):
		return SectionEvidence, true
	}
	return "", false
}

func (p *stageProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	section, isDetail := classifyPrompt(prompt)

	if !isDetail {
		if p.coreErr != nil {
			return nil, p.coreErr
		}
		return &llm.CompletionResponse{Content: p.coreBody}, nil
	}

	p.mu.Lock()
	p.calls = append(p.calls, section)
	gate := p.gates[section]
	failErr := p.fail[section]
	body := p.responses[section]
	if p.responseFor != nil {
		if override, ok := p.responseFor(section, prompt); ok {
			body = override
		}
	}
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}
	return &llm.CompletionResponse{Content: body}, nil
}

func (p *stageProvider) detailCalls() []Section {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Section(nil), p.calls...)
}

func testRequest() Request {
	return Request{Condition: "sepsis", Discipline: "emergency medicine", Difficulty: casedoc.DifficultyResident}
}

func TestCoreVisibleBeforeDetailRequests(t *testing.T) {
	p := newStageProvider()
	o := New(p, WithSectionTimeout(5*time.Second))

	var mu sync.Mutex
	var order []string

	doc, err := o.Generate(context.Background(), testRequest(), Events{
		CoreReady: func(d *casedoc.Document) {
			mu.Lock()
			order = append(order, "core")
			mu.Unlock()
			if len(p.detailCalls()) != 0 {
				t.Error("detail requests issued before core was exposed")
			}
			if d.Title != "Test Case" {
				t.Errorf("unexpected title: %q", d.Title)
			}
		},
		SectionMerged: func(s Section, d *casedoc.Document) {
			mu.Lock()
			order = append(order, string(s))
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(order) == 0 || order[0] != "core" {
		t.Fatalf("core must come first, got %v", order)
	}
	if doc.Title != "Test Case" {
		t.Errorf("unexpected title: %q", doc.Title)
	}
	if o.Status() != StatusIdle {
		t.Error("expected idle after settle")
	}
}

func TestSectionMergedReceivesSnapshot(t *testing.T) {
	p := newStageProvider()
	o := New(p, WithSectionTimeout(5*time.Second))

	var mu sync.Mutex
	var seen []*casedoc.Document

	doc, err := o.Generate(context.Background(), testRequest(), Events{
		SectionMerged: func(s Section, d *casedoc.Document) {
			// Sibling sections may still be merging; the callback's
			// document must be safe to read and scribble on freely.
			d.Title = "scribbled by " + string(s)
			d.Considerations = nil
			mu.Lock()
			seen = append(seen, d)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 merged sections, got %d", len(seen))
	}
	for _, d := range seen {
		if d == doc {
			t.Fatal("callback received the live document, not a snapshot")
		}
	}
	if doc.Title != "Test Case" {
		t.Errorf("callback mutation leaked into the settled document: %q", doc.Title)
	}
	if len(doc.Considerations) != 1 {
		t.Errorf("callback mutation leaked into the settled document: %+v", doc.Considerations)
	}
}

func TestCoreFailureIsFatal(t *testing.T) {
	p := newStageProvider()
	p.coreErr = errors.New("503 service unavailable")
	o := New(p)

	_, err := o.Generate(context.Background(), testRequest(), Events{})
	if !errors.Is(err, ErrCoreGeneration) {
		t.Fatalf("expected ErrCoreGeneration, got %v", err)
	}
	if len(p.detailCalls()) != 0 {
		t.Error("no detail call may be issued after core failure")
	}
	if o.Document() != nil {
		t.Error("no partial document may be exposed")
	}
	if o.Status() != StatusIdle {
		t.Error("loading state must end on fatal failure")
	}
}

func TestPartialFailureTolerance(t *testing.T) {
	p := newStageProvider()
	p.fail[SectionManagement] = errors.New("timeout")
	p.fail[SectionKnowledgeMap] = errors.New("garbled")
	o := New(p, WithLogf(func(string, ...any) {}))

	var failed []Section
	var mu sync.Mutex

	doc, err := o.Generate(context.Background(), testRequest(), Events{
		SectionFailed: func(s Section, err error) {
			mu.Lock()
			failed = append(failed, s)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("partial failures must not fail the run: %v", err)
	}

	if len(doc.Connections) != 1 || len(doc.Quiz) != 1 {
		t.Error("successful sections should be merged")
	}
	if doc.Considerations != nil || doc.EducationalContent != nil {
		t.Error("failed section must be absent, not partial")
	}
	if o.Graph() != nil {
		t.Error("failed map stage must leave no graph")
	}
	if len(failed) != 2 {
		t.Errorf("expected 2 failure reports, got %v", failed)
	}
}

func TestSchemaViolationIsSectionFailure(t *testing.T) {
	p := newStageProvider()
	p.responses[SectionEvidence] = `{"quiz":[{"question":"Q","options":["only one"],"answer":0}]}`
	o := New(p, WithLogf(func(string, ...any) {}))

	doc, err := o.Generate(context.Background(), testRequest(), Events{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Quiz != nil {
		t.Error("schema-violating quiz must not be merged")
	}
	if len(doc.Connections) != 1 {
		t.Error("other sections must be unaffected")
	}
}

func TestMapLinkInvariantEnforcedOnMerge(t *testing.T) {
	p := newStageProvider()
	o := New(p)

	if _, err := o.Generate(context.Background(), testRequest(), Events{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	g := o.Graph()
	if g == nil {
		t.Fatal("expected knowledge graph")
	}
	if len(g.Links()) != 1 {
		t.Errorf("dangling link must be dropped at merge, got %d links", len(g.Links()))
	}
}

func TestStaleRunResultsDiscarded(t *testing.T) {
	p1 := newStageProvider()
	gate := make(chan struct{})
	for _, s := range detailSections {
		p1.gates[s] = gate
	}
	// Run 1's evidence (keyed off run 1's case title in the prompt)
	// carries a recognizable marker so a leak into run 2 is detectable.
	p1.responseFor = func(s Section, prompt string) (string, bool) {
		if s == SectionEvidence && strings.Contains(prompt, `"Test Case"`) {
			return `{"evidence":[{"claim":"RUN1"}],"further_readings":[],"quiz":[]}`, true
		}
		return "", false
	}

	o := New(p1, WithLogf(func(string, ...any) {}))

	run1done := make(chan struct{})
	var run1err error
	go func() {
		_, run1err = o.Generate(context.Background(), testRequest(), Events{})
		close(run1done)
	}()

	// Wait until run 1's detail calls are parked behind the gate.
	deadline := time.After(5 * time.Second)
	for len(p1.detailCalls()) < len(detailSections) {
		select {
		case <-deadline:
			t.Fatal("run 1 detail calls never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Start run 2 while run 1 is still in flight; its detail calls are
	// also gated so it parks after bumping the run token.
	p1.mu.Lock()
	p1.coreBody = `{"title":"Run Two","patient_profile":"P","presenting_complaint":"C","clinical_history":"H"}`
	p1.mu.Unlock()

	run2done := make(chan struct{})
	var run2doc *casedoc.Document
	var run2err error
	go func() {
		run2doc, run2err = o.Generate(context.Background(), testRequest(), Events{})
		close(run2done)
	}()

	// Wait for run 2's detail calls to be issued (4 more).
	deadline = time.After(5 * time.Second)
	for len(p1.detailCalls()) < 2*len(detailSections) {
		select {
		case <-deadline:
			t.Fatal("run 2 detail calls never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Release everything: run 1's stale results resolve alongside run 2's.
	close(gate)
	<-run1done
	<-run2done

	if !errors.Is(run1err, ErrSuperseded) {
		t.Errorf("run 1 should report superseded, got %v", run1err)
	}
	if run2err != nil {
		t.Fatalf("run 2 failed: %v", run2err)
	}
	if run2doc.Title != "Run Two" {
		t.Errorf("unexpected run 2 title: %q", run2doc.Title)
	}
	for _, c := range run2doc.Evidence {
		if c.Claim == "RUN1" {
			t.Error("run 1 result leaked into run 2's document")
		}
	}
	if got := o.Document(); got != run2doc {
		t.Error("orchestrator should hold run 2's document")
	}
}

func TestSetDocumentInvalidatesPendingRun(t *testing.T) {
	p := newStageProvider()
	gate := make(chan struct{})
	for _, s := range detailSections {
		p.gates[s] = gate
	}
	o := New(p, WithLogf(func(string, ...any) {}))

	done := make(chan struct{})
	var genErr error
	go func() {
		_, genErr = o.Generate(context.Background(), testRequest(), Events{})
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for len(p.detailCalls()) < len(detailSections) {
		select {
		case <-deadline:
			t.Fatal("detail calls never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	loaded := &casedoc.Document{ID: "saved", Title: "Loaded Case"}
	o.SetDocument(loaded)
	close(gate)
	<-done

	if !errors.Is(genErr, ErrSuperseded) {
		t.Errorf("expected superseded run, got %v", genErr)
	}
	if o.Document() != loaded {
		t.Error("loaded document must win over late pipeline results")
	}
	if o.Document().Quiz != nil {
		t.Error("stale section results leaked into the loaded document")
	}
}
