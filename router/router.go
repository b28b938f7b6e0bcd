package router

import (
	"strings"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

const (
	// DefaultMaxLength is the prompt budget in characters.
	DefaultMaxLength = 4000
	// CurrentSituationKey is the section every bundle carries.
	CurrentSituationKey = "currentSituation"
	// NotEstablished is used when no current scene is known.
	NotEstablished = "Not established"
)

// ConsumerProfile describes a pipeline stage that consumes context.
type ConsumerProfile struct {
	Name         string   `json:"name" yaml:"name"`
	Role         string   `json:"role,omitempty" yaml:"role,omitempty"`
	ContextNeeds []string `json:"context_needs" yaml:"context_needs"`
	Instructions string   `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	// MaxPromptLength overrides the router budget when positive.
	MaxPromptLength int `json:"max_prompt_length,omitempty" yaml:"max_prompt_length,omitempty"`
}

// Needs resolves the declared identifiers, dropping unknown ones.
func (p ConsumerProfile) Needs() []Need {
	out := make([]Need, 0, len(p.ContextNeeds))
	for _, id := range p.ContextNeeds {
		if n, ok := ParseNeed(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// Bundle is the assembled context for one consumer and phase.
type Bundle struct {
	ConsumerID   string    `json:"consumer_id"`
	ConsumerName string    `json:"consumer_name"`
	Phase        string    `json:"phase"`
	Sections     *Sections `json:"sections"`
	Formatted    string    `json:"formatted"`
}

// Input is the processed state a route reads from.
type Input struct {
	Processed *core.ProcessedContext
	Snapshot  *core.Snapshot
}

// Options configures a Router.
type Options struct {
	Logger    logging.Logger
	MaxLength int
}

// Router assembles consumer bundles.
type Router struct {
	logger    logging.Logger
	maxLength int
}

// New creates a Router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		MaxLength: DefaultMaxLength,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Router{logger: opts.Logger, maxLength: opts.MaxLength}
}

// MaxLength returns the default prompt budget.
func (r *Router) MaxLength() int { return r.maxLength }

// Route builds the bundle for consumerID. Sections appear in the order the
// profile declares its needs, after the current situation. Unknown need
// identifiers are skipped and a need declared twice is resolved once.
func (r *Router) Route(in Input, consumerID string, profile ConsumerProfile, phase string, store core.StateStore) Bundle {
	rc := &routeContext{
		processed: in.Processed,
		snapshot:  in.Snapshot,
		captured:  capturedStore(in.Processed),
		live:      core.ViewStore(store),
	}

	sections := NewSections()
	sections.Set(CurrentSituationKey, rc.currentSituation())

	for _, id := range profile.ContextNeeds {
		need, ok := ParseNeed(strings.TrimSpace(id))
		if !ok {
			r.logger.Debug("router.need.unknown", "consumer", consumerID, "need", id)
			continue
		}
		key := need.String()
		if _, seen := sections.Get(key); seen {
			continue
		}
		sections.Set(key, needHandlers[need](rc))
	}

	maxLength := r.maxLength
	if profile.MaxPromptLength > 0 {
		maxLength = profile.MaxPromptLength
	}

	formatted, dropped := formatForPrompt(sections, maxLength)
	for _, k := range dropped {
		r.logger.Debug("router.section.dropped", "consumer", consumerID, "section", k, "max_length", maxLength)
	}

	name := profile.Name
	if name == "" {
		name = consumerID
	}

	return Bundle{
		ConsumerID:   consumerID,
		ConsumerName: name,
		Phase:        phase,
		Sections:     sections,
		Formatted:    formatted,
	}
}

func capturedStore(pc *core.ProcessedContext) *core.StoreSnapshot {
	if pc == nil {
		return nil
	}
	return pc.Store
}
