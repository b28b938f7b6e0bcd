package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/contextmesh/internal/util"
	"github.com/hupe1980/contextmesh/router"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn sent to a model.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request captures the normalized model input.
type Request struct {
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. The final
// chunk carries the complete text.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyRequest is returned when a request carries no messages.
var ErrEmptyRequest = errors.New("model: no messages provided")

// DefaultUserPrompt is used when NewRequest receives an empty prompt.
const DefaultUserPrompt = "Continue."

// NewRequest builds a request for a consumer. The profile instructions are
// rendered as a template over the bundle (fields consumer, phase, context
// and one entry per section key) and followed by the formatted bundle.
func NewRequest(b router.Bundle, p router.ConsumerProfile, userPrompt string) (Request, error) {
	state := map[string]any{
		"consumer": b.ConsumerName,
		"role":     p.Role,
		"phase":    b.Phase,
		"context":  b.Formatted,
	}
	b.Sections.Each(func(k string, v any) { state[k] = v })

	instructions, err := util.RenderTemplate(p.Instructions, state)
	if err != nil {
		return Request{}, fmt.Errorf("model: render instructions for %q: %w", b.ConsumerID, err)
	}

	var sys strings.Builder
	if s := strings.TrimSpace(instructions); s != "" {
		sys.WriteString(s)
	}
	if b.Formatted != "" {
		if sys.Len() > 0 {
			sys.WriteString("\n\n")
		}
		sys.WriteString(b.Formatted)
	}

	if strings.TrimSpace(userPrompt) == "" {
		userPrompt = DefaultUserPrompt
	}

	return Request{
		System:   sys.String(),
		Messages: []Message{{Role: RoleUser, Text: userPrompt}},
	}, nil
}

// Send delivers r on out, giving up with ctx.Err() when ctx ends first.
// Model implementations use it so an abandoned generation does not block
// its producer.
func Send(ctx context.Context, out chan<- Response, r Response) error {
	select {
	case out <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect drains a generation and returns the final response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)
	var (
		final Response
		text  strings.Builder
		done  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				text.WriteString(r.Text)
				continue
			}
			final, done = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if !done {
		if text.Len() == 0 {
			return Response{}, errors.New("model: no final response")
		}
		final = Response{Text: text.String()}
	}
	return final, nil
}
