// Package openai runs consumer requests against the OpenAI Chat Completions
// API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/contextmesh/model"
)

// Options configure the OpenAI adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model sends routed prompts to an OpenAI chat model.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

// NewModel creates a Model with a client configured from the environment
// (OPENAI_API_KEY, OPENAI_BASE_URL).
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a Model on top of an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate sends req. Streaming requests emit one partial response per text
// delta and a final response with the full text and usage.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if len(req.Messages) == 0 {
			errCh <- model.ErrEmptyRequest
			return
		}

		params := m.buildParams(buildMessages(req))

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

// buildMessages puts the routed context first as the system message,
// followed by the consumer turns. Empty turns are dropped.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		if msg.Text == "" {
			continue
		}
		if msg.Role == model.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(msg.Text))
	}
	return messages
}

func (m *Model) buildParams(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
}

// stream accumulates chunks and emits the final response after the stream
// ends, since the usage chunk arrives after the finish reason.
func (m *Model) stream(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	s := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = s.Close() }()

	acc := openai.ChatCompletionAccumulator{}
	for s.Next() {
		chunk := s.Current()
		acc.AddChunk(chunk)
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := model.Send(ctx, out, model.Response{ID: chunk.ID, Partial: true, Text: choice.Delta.Content}); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	if len(acc.Choices) == 0 {
		return errors.New("openai stream: no choices returned")
	}

	return model.Send(ctx, out, finalResponse(acc.ChatCompletion))
}

func (m *Model) complete(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai completion: no choices returned")
	}

	return model.Send(ctx, out, finalResponse(*resp))
}

// finalResponse maps the first choice of a completion.
func finalResponse(c openai.ChatCompletion) model.Response {
	choice := c.Choices[0]
	return model.Response{
		ID:           c.ID,
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}
}

// Info reports the configured model name.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}
