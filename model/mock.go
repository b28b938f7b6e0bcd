package model

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/contextmesh/tokens"
)

// MockModel answers from a table of canned completions keyed by the last
// user message. Unknown prompts get "Mock response to: <prompt>".
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	requests  []Request
}

var _ Model = (*MockModel)(nil)

// NewMockModel creates an empty MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: map[string]string{},
	}
}

// AddResponse registers the completion returned for prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Requests returns a copy of every request received.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockModel) answer(req Request) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	prompt := req.Messages[len(req.Messages)-1].Text
	if r, ok := m.responses[prompt]; ok && r != "" {
		return r
	}
	return "Mock response to: " + prompt
}

// Generate streams the answer word by word when req.Stream is set, then
// sends the full text with a token estimate as usage.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	if len(req.Messages) == 0 {
		errCh <- ErrEmptyRequest
		close(respCh)
		close(errCh)
		return respCh, errCh
	}
	text := m.answer(req)

	send := func(r Response) bool {
		if err := Send(ctx, respCh, r); err != nil {
			errCh <- err
			return false
		}
		return true
	}

	go func() {
		defer close(respCh)
		defer close(errCh)

		if req.Stream {
			for _, chunk := range strings.SplitAfter(text, " ") {
				if !send(Response{Partial: true, Text: chunk}) {
					return
				}
			}
		}

		prompt := tokens.Count(req.System)
		for _, msg := range req.Messages {
			prompt += tokens.Count(msg.Text)
		}
		completion := tokens.Count(text)
		send(Response{
			Text:         text,
			FinishReason: "stop",
			Usage: &TokenUsage{
				PromptTokens:     prompt,
				CompletionTokens: completion,
				TotalTokens:      prompt + completion,
			},
		})
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
