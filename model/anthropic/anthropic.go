// Package anthropic runs consumer requests against the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/contextmesh/model"
)

// Options configure the Anthropic adapter. APIKey falls back to
// ANTHROPIC_API_KEY when empty.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model sends routed prompts to a Claude model.
type Model struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// NewModel creates a Model with its own client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := newOptions(optFns)

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(reqOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a Model on top of an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: newOptions(optFns)}
}

// Generate sends req. The routed context travels as the system prompt.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		messages := buildMessages(req.Messages)
		if len(messages) == 0 {
			errCh <- model.ErrEmptyRequest
			return
		}

		params := m.buildParams(req.System, messages)

		var err error
		if req.Stream {
			err = m.stream(ctx, params, out)
		} else {
			err = m.complete(ctx, params, out)
		}
		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// buildMessages drops empty turns and maps roles.
func buildMessages(msgs []model.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, msg := range msgs {
		if msg.Text == "" {
			continue
		}
		block := anthropic.NewTextBlock(msg.Text)
		if msg.Role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}
	return messages
}

func (m *Model) buildParams(system string, messages []anthropic.MessageParam) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

func (m *Model) complete(ctx context.Context, params anthropic.MessageNewParams, out chan<- model.Response) error {
	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return fmt.Errorf("anthropic message: %w", err)
	}
	return model.Send(ctx, out, finalResponse(*msg))
}

// stream emits text deltas as partial responses, then the accumulated
// message.
func (m *Model) stream(ctx context.Context, params anthropic.MessageNewParams, out chan<- model.Response) error {
	s := m.client.Messages.NewStreaming(ctx, params)
	defer func() { _ = s.Close() }()

	msg := anthropic.Message{}
	for s.Next() {
		event := s.Current()
		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("anthropic stream: %w", err)
		}
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text := delta.Delta.AsTextDelta().Text; text != "" {
			if err := model.Send(ctx, out, model.Response{ID: msg.ID, Partial: true, Text: text}); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}

	return model.Send(ctx, out, finalResponse(msg))
}

// finalResponse joins the text blocks of msg. A missing stop reason is
// reported as "stop".
func finalResponse(msg anthropic.Message) model.Response {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	reason := string(msg.StopReason)
	if reason == "" {
		reason = "stop"
	}

	in, outTokens := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return model.Response{
		ID:           msg.ID,
		Text:         text.String(),
		FinishReason: reason,
		Usage: &model.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: outTokens,
			TotalTokens:      in + outTokens,
		},
	}
}

// Info reports the configured model name.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}
