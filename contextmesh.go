// Package contextmesh provides a high-level façade over the context pipeline:
// snapshot acquisition, formatting, extraction, indexing, relevance ranking
// and per-consumer routing. Most applications interact with this package by:
//  1. Creating a ContextMesh via New() around a host SnapshotProvider
//  2. Running a processing pass (Process) whenever the host session changes
//  3. Querying ranked excerpts (Query) or routing bundles to pipeline
//     stages (RouteForConsumer)
//
// A ContextMesh owns the state of one session: the last snapshot, the
// processed context, the index and the relevance cache. It is not safe for
// concurrent use; callers serialize passes and reads. Independent sessions
// use independent instances.
package contextmesh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/extract"
	"github.com/hupe1980/contextmesh/format"
	"github.com/hupe1980/contextmesh/index"
	"github.com/hupe1980/contextmesh/logging"
	"github.com/hupe1980/contextmesh/relevance"
	"github.com/hupe1980/contextmesh/router"
	"github.com/hupe1980/contextmesh/snapshot"
	"github.com/hupe1980/contextmesh/tokens"
)

// ErrNotProcessed is returned by reads that need a completed processing pass.
var ErrNotProcessed = errors.New("contextmesh: no processed context")

const tracerName = "github.com/hupe1980/contextmesh"

// Options configures the ContextMesh instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil). A *logging.ContextLogger
	// additionally receives pass-scoped records.
	Logger logging.Logger

	// TracerProvider supplies spans for Process, Query and RouteForConsumer.
	// Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Chat and Lore configure the formatter.
	Chat format.ChatOptions
	Lore format.LoreOptions

	// Weights configure relevance scoring.
	Weights relevance.Weights

	// MaxPromptLength is the default routing budget in characters.
	MaxPromptLength int

	// Now supplies pass timestamps. Defaults to time.Now.
	Now func() time.Time
}

// ContextMesh is the per-session context object.
type ContextMesh struct {
	opts     Options
	tracer   trace.Tracer
	acquirer *snapshot.Acquirer
	cache    *relevance.Cache
	engine   *relevance.Engine
	router   *router.Router

	raw       *core.Snapshot
	processed *core.ProcessedContext
	idx       *index.Index

	passes     int
	lastPassID string
}

// New creates a ContextMesh reading host sessions from provider.
func New(provider core.SnapshotProvider, optFns ...func(o *Options)) *ContextMesh {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		Chat:            format.DefaultChatOptions(),
		Weights:         relevance.DefaultWeights(),
		MaxPromptLength: router.DefaultMaxLength,
		Now:             time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cache := relevance.NewCache()

	return &ContextMesh{
		opts:   opts,
		tracer: opts.TracerProvider.Tracer(tracerName),
		acquirer: snapshot.NewAcquirer(provider, func(o *snapshot.Options) {
			o.Logger = opts.Logger
			o.Now = opts.Now
		}),
		cache:  cache,
		engine: relevance.NewEngine(opts.Weights, cache),
		router: router.New(func(o *router.Options) {
			o.Logger = opts.Logger
			o.MaxLength = opts.MaxPromptLength
		}),
	}
}

// Process runs one full pass: acquire, format, extract, estimate and index.
// The new state replaces the previous one wholesale and the relevance cache
// is reset. A failed acquisition returns a *core.AcquisitionError and leaves
// the previous state untouched. store may be nil.
func (m *ContextMesh) Process(ctx context.Context, store core.StateStore) (*core.ProcessedContext, error) {
	ctx, span := m.tracer.Start(ctx, "contextmesh.Process")
	defer span.End()

	start := time.Now()
	passID := uuid.NewString()
	span.SetAttributes(attribute.String("contextmesh.pass_id", passID))

	snap, err := m.acquirer.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logPass(ctx, passID, nil, time.Since(start), err)
		return nil, err
	}

	pc := m.build(snap, store)
	idx := index.Build(pc, snap)

	m.raw, m.processed, m.idx = snap, pc, idx
	m.cache.Reset()
	m.passes++
	m.lastPassID = passID

	span.SetAttributes(
		attribute.Int("contextmesh.messages", len(snap.Messages)),
		attribute.Int("contextmesh.lore_entries", len(snap.Lore)),
		attribute.Int("contextmesh.tokens", pc.Tokens.Total),
	)
	m.logPass(ctx, passID, pc, time.Since(start), nil)

	return pc, nil
}

func (m *ContextMesh) build(snap *core.Snapshot, store core.StateStore) *core.ProcessedContext {
	pc := &core.ProcessedContext{
		Chat:          format.FormatChat(snap.Messages, func(o *format.ChatOptions) { *o = m.opts.Chat }),
		Lore:          format.FormatLore(snap.Lore, func(o *format.LoreOptions) { *o = m.opts.Lore }),
		Character:     format.FormatCharacter(snap.Character),
		Entities:      extract.Entities(snap),
		Timeline:      extract.Timeline(snap.Messages),
		Relationships: extract.Relationships(snap),
		Store:         core.CaptureStore(store),
		ProcessedAt:   m.opts.Now(),
	}
	pc.Tokens = tokens.Estimate(pc)
	return pc
}

func (m *ContextMesh) logPass(ctx context.Context, passID string, pc *core.ProcessedContext, dur time.Duration, err error) {
	if cl, ok := m.opts.Logger.(*logging.ContextLogger); ok {
		var msgs, lore, entities, toks int
		if pc != nil {
			msgs = pc.Chat.TotalCount
			lore = pc.Lore.IncludedCount
			entities = entityCount(pc.Entities)
			toks = pc.Tokens.Total
		}
		cl.WithSpan(ctx).WithPass(passID).LogPass(msgs, lore, entities, toks, dur, err)
		return
	}
	if err != nil {
		m.opts.Logger.Error("contextmesh.process.failed", "pass_id", passID, "error", err)
		return
	}
	m.opts.Logger.Info("contextmesh.process", "pass_id", passID, "tokens", pc.Tokens.Total, "duration", dur)
}

// Query ranks excerpts of the last processed snapshot against text.
func (m *ContextMesh) Query(ctx context.Context, text string, optFns ...func(o *relevance.QueryOptions)) (relevance.Result, error) {
	_, span := m.tracer.Start(ctx, "contextmesh.Query")
	defer span.End()

	if m.processed == nil {
		span.SetStatus(codes.Error, ErrNotProcessed.Error())
		return relevance.Result{}, ErrNotProcessed
	}

	start := time.Now()
	before := m.cache.Len()
	res := m.engine.Query(relevance.Corpus{Snapshot: m.raw, Store: m.processed.Store}, text, optFns...)
	cached := m.cache.Len() == before

	span.SetAttributes(
		attribute.Int("contextmesh.results", len(res.Items)),
		attribute.Bool("contextmesh.cached", cached),
	)
	if cl, ok := m.opts.Logger.(*logging.ContextLogger); ok {
		cl.LogQuery(text, len(res.Items), cached, time.Since(start))
	} else {
		m.opts.Logger.Debug("contextmesh.query", "query", text, "results", len(res.Items), "cached", cached)
	}
	return res, nil
}

// RouteForConsumer assembles the bundle for one pipeline stage. store is the
// live story-state collaborator used when the processed pass holds no value
// for a need; it may be nil.
func (m *ContextMesh) RouteForConsumer(
	ctx context.Context,
	consumerID string,
	profile router.ConsumerProfile,
	phase string,
	store core.StateStore,
) (router.Bundle, error) {
	_, span := m.tracer.Start(ctx, "contextmesh.RouteForConsumer", trace.WithAttributes(
		attribute.String("contextmesh.consumer", consumerID),
		attribute.String("contextmesh.phase", phase),
	))
	defer span.End()

	if m.processed == nil {
		span.SetStatus(codes.Error, ErrNotProcessed.Error())
		return router.Bundle{}, ErrNotProcessed
	}

	b := m.router.Route(router.Input{Processed: m.processed, Snapshot: m.raw}, consumerID, profile, phase, store)

	span.SetAttributes(
		attribute.Int("contextmesh.sections", b.Sections.Len()),
		attribute.Int("contextmesh.prompt_length", len([]rune(b.Formatted))),
	)
	if cl, ok := m.opts.Logger.(*logging.ContextLogger); ok {
		cl.LogRoute(consumerID, phase, b.Sections.Len(), len([]rune(b.Formatted)))
	} else {
		m.opts.Logger.Debug("contextmesh.route", "consumer", consumerID, "phase", phase, "sections", b.Sections.Len())
	}
	return b, nil
}

// Index returns the index of the last pass, or nil before the first pass.
func (m *ContextMesh) Index() *index.Index { return m.idx }

// Processed returns the processed context of the last pass, or nil.
func (m *ContextMesh) Processed() *core.ProcessedContext { return m.processed }

// Raw returns the snapshot of the last pass, or nil.
func (m *ContextMesh) Raw() *core.Snapshot { return m.raw }

// Clear drops all pass state and the relevance cache.
func (m *ContextMesh) Clear() {
	m.raw, m.processed, m.idx = nil, nil, nil
	m.cache.Reset()
	m.lastPassID = ""
	m.opts.Logger.Debug("contextmesh.clear")
}

// Summary describes the current state.
type Summary struct {
	Processed     bool        `json:"processed"`
	Passes        int         `json:"passes"`
	LastPassID    string      `json:"last_pass_id,omitempty"`
	ProcessedAt   time.Time   `json:"processed_at,omitempty"`
	Messages      int         `json:"messages"`
	LoreEntries   int         `json:"lore_entries"`
	Character     string      `json:"character,omitempty"`
	Relationships int         `json:"relationships"`
	HasStore      bool        `json:"has_store"`
	Tokens        int         `json:"tokens"`
	CacheEntries  int         `json:"cache_entries"`
	Index         index.Stats `json:"index"`
}

// Summary returns counts describing the current state.
func (m *ContextMesh) Summary() Summary {
	s := Summary{
		Processed:    m.processed != nil,
		Passes:       m.passes,
		LastPassID:   m.lastPassID,
		CacheEntries: m.cache.Len(),
	}
	if m.processed == nil {
		return s
	}
	s.ProcessedAt = m.processed.ProcessedAt
	s.Messages = len(m.raw.Messages)
	s.LoreEntries = len(m.raw.Lore)
	s.Character = m.raw.Character.Name
	s.Relationships = m.processed.Relationships.Len()
	s.HasStore = m.processed.Store != nil
	s.Tokens = m.processed.Tokens.Total
	s.Index = m.idx.Stats()
	return s
}

func entityCount(es core.EntitySet) int {
	return len(es.Characters) + len(es.Locations) + len(es.Factions) + len(es.Items)
}
