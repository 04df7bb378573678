// Package generate drives the staged case-assembly pipeline: one
// blocking core-case request, then four concurrent detail requests
// merged into the live document as they settle.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
)

// Section identifies one of the independently-generated detail payloads.
type Section string

const (
	SectionMainDetails  Section = "main_details"
	SectionManagement   Section = "management_and_content"
	SectionEvidence     Section = "evidence_and_quiz"
	SectionKnowledgeMap Section = "knowledge_map"
)

// detailSections lists the sections fanned out after the core resolves.
var detailSections = []Section{SectionMainDetails, SectionManagement, SectionEvidence, SectionKnowledgeMap}

// Status describes what the orchestrator is doing.
type Status int

const (
	// StatusIdle: no generation in flight; the document may be edited.
	StatusIdle Status = iota
	// StatusLoading: waiting for the core case; nothing usable yet.
	StatusLoading
	// StatusEnriching: the core case is visible and detail sections
	// are still settling in the background.
	StatusEnriching
)

// ErrCoreGeneration is returned when the first pipeline stage fails;
// no partial document is exposed in that case.
var ErrCoreGeneration = errors.New("core case generation failed")

// ErrSuperseded is returned when a newer generation run started while
// this one was in flight. It is not a failure; the result is simply
// stale and must be discarded.
var ErrSuperseded = errors.New("generation run superseded")

// Request carries the learner's inputs for one generation run.
type Request struct {
	Condition  string
	Discipline string
	Difficulty casedoc.Difficulty
	Language   string
}

// Events receives pipeline progress. Callbacks run on the pipeline's
// goroutines; any may be nil. The core-ready callback always fires
// before any detail request is issued. SectionMerged receives a
// snapshot: sibling sections may still be merging into the live
// document when it runs.
type Events struct {
	CoreReady     func(doc *casedoc.Document)
	SectionMerged func(section Section, doc *casedoc.Document)
	SectionFailed func(section Section, err error)
	MapReady      func(g *knowledge.Graph)
	Settled       func(doc *casedoc.Document)
}

// Orchestrator owns the generation pipeline and the staleness tokens
// that keep superseded runs from touching newer documents.
type Orchestrator struct {
	provider       llm.Provider
	model          string
	sectionTimeout time.Duration
	logf           func(format string, args ...any)

	mu     sync.Mutex
	run    uint64
	status Status
	doc    *casedoc.Document
	graph  *knowledge.Graph
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithSectionTimeout bounds each detail request. Detail calls must not
// hang indefinitely; the default is 90 seconds.
func WithSectionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sectionTimeout = d
		}
	}
}

// WithLogf replaces the logger used for non-fatal section failures.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(o *Orchestrator) { o.logf = logf }
}

// New creates an Orchestrator backed by the given provider.
func New(provider llm.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:       provider,
		sectionTimeout: 90 * time.Second,
		logf:           log.Printf,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current pipeline state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Document returns the current run's document, or nil.
func (o *Orchestrator) Document() *casedoc.Document {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.doc
}

// Graph returns the current run's knowledge map, or nil if the map
// stage has not arrived or failed.
func (o *Orchestrator) Graph() *knowledge.Graph {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.graph
}

// SetDocument installs a document from outside the pipeline (a loaded
// save, a decoded share link, or a committed edit). It bumps the run
// token so any still-pending detail results from an older run are
// discarded; the knowledge map is cleared because it is never part of
// loaded or shared payloads.
func (o *Orchestrator) SetDocument(doc *casedoc.Document) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run++
	o.doc = doc
	o.graph = nil
	o.status = StatusIdle
}

// Generate runs the full staged pipeline and blocks until every detail
// section settles. Progress is observable through ev; the returned
// document is the same one the callbacks saw. Starting a new run while
// another is in flight supersedes the older run: its remaining results
// are dropped silently and it returns ErrSuperseded.
func (o *Orchestrator) Generate(ctx context.Context, req Request, ev Events) (*casedoc.Document, error) {
	o.mu.Lock()
	o.run++
	token := o.run
	o.status = StatusLoading
	o.doc = nil
	o.graph = nil
	o.mu.Unlock()

	core, err := o.generateCore(ctx, req)
	if err != nil {
		o.mu.Lock()
		if o.run == token {
			o.status = StatusIdle
		}
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrCoreGeneration, err)
	}

	doc := &casedoc.Document{
		ID:         uuid.New().String(),
		Condition:  req.Condition,
		Discipline: req.Discipline,
		Difficulty: req.Difficulty,
		Language:   req.Language,
		CreatedAt:  time.Now().UTC(),
	}
	doc.ApplyCore(core)

	o.mu.Lock()
	if o.run != token {
		o.mu.Unlock()
		return nil, ErrSuperseded
	}
	o.doc = doc
	o.status = StatusEnriching
	o.mu.Unlock()

	// The document is usable from here on; detail sections only enrich it.
	if ev.CoreReady != nil {
		ev.CoreReady(doc)
	}

	var wg sync.WaitGroup
	for _, section := range detailSections {
		wg.Add(1)
		go func(section Section) {
			defer wg.Done()
			o.runSection(ctx, token, section, req, doc, ev)
		}(section)
	}
	wg.Wait()

	o.mu.Lock()
	superseded := o.run != token
	if !superseded {
		o.status = StatusIdle
	}
	o.mu.Unlock()

	if superseded {
		return nil, ErrSuperseded
	}
	if ev.Settled != nil {
		ev.Settled(doc)
	}
	return doc, nil
}

func (o *Orchestrator) generateCore(ctx context.Context, req Request) (*casedoc.CorePayload, error) {
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model:       o.model,
		Messages:    coreMessages(req),
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return casedoc.ParseCore(resp.Content)
}

// runSection issues one detail request and merges its result if this
// run is still current. Failures are an expected degraded-success
// mode: logged and reported, never fatal.
func (o *Orchestrator) runSection(ctx context.Context, token uint64, section Section, req Request, doc *casedoc.Document, ev Events) {
	sctx, cancel := context.WithTimeout(ctx, o.sectionTimeout)
	defer cancel()

	resp, err := o.provider.Complete(sctx, llm.CompletionRequest{
		Model:       o.model,
		Messages:    sectionMessages(section, req, doc.Title),
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		o.sectionFailed(token, section, err, ev)
		return
	}

	if section == SectionKnowledgeMap {
		g, err := knowledge.Parse(resp.Content)
		if err != nil {
			o.sectionFailed(token, section, err, ev)
			return
		}
		o.mu.Lock()
		if o.run != token {
			o.mu.Unlock()
			return
		}
		o.graph = g
		o.mu.Unlock()
		if ev.MapReady != nil {
			ev.MapReady(g)
		}
		return
	}

	o.mu.Lock()
	if o.run != token {
		o.mu.Unlock()
		return
	}
	switch section {
	case SectionMainDetails:
		p, perr := casedoc.ParseMainDetails(resp.Content)
		err = perr
		if perr == nil {
			doc.ApplyMainDetails(p)
		}
	case SectionManagement:
		p, perr := casedoc.ParseManagement(resp.Content)
		err = perr
		if perr == nil {
			doc.ApplyManagement(p)
		}
	case SectionEvidence:
		p, perr := casedoc.ParseEvidence(resp.Content)
		err = perr
		if perr == nil {
			doc.ApplyEvidence(p)
		}
	}
	// Snapshot under the lock: sibling sections keep merging into doc
	// while the callback runs.
	var merged *casedoc.Document
	if err == nil {
		merged = doc.Clone()
	}
	o.mu.Unlock()

	if err != nil {
		o.sectionFailed(token, section, err, ev)
		return
	}
	if ev.SectionMerged != nil {
		ev.SectionMerged(section, merged)
	}
}

// sectionFailed reports a non-fatal section failure. Failures of a
// superseded run are not failures at all; they are dropped without a
// log line.
func (o *Orchestrator) sectionFailed(token uint64, section Section, err error, ev Events) {
	o.mu.Lock()
	stale := o.run != token
	o.mu.Unlock()
	if stale {
		return
	}
	o.logf("generate: section %s failed: %v", section, err)
	if ev.SectionFailed != nil {
		ev.SectionFailed(section, err)
	}
}
