package llm

import (
	"context"
	"sync"

	"medassist/internal/errors"

	stderrors "errors"
)

// ScriptedResponse is one canned turn for the mock client.
type ScriptedResponse struct {
	Response *CompletionResponse
	Err      error
	// Deltas are replayed through OnContentDelta before Response is
	// returned from Stream.
	Deltas []ContentDelta
}

// MockClient replays scripted responses in order. Used across the workflow
// and server tests.
type MockClient struct {
	mu       sync.Mutex
	name     string
	script   []ScriptedResponse
	next     int
	Requests []CompletionRequest
}

// NewMockClient builds a mock that replays script in order.
func NewMockClient(name string, script ...ScriptedResponse) *MockClient {
	return &MockClient{name: name, script: script}
}

func (m *MockClient) Model() string { return m.name }

func (m *MockClient) take(req CompletionRequest) (ScriptedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.next >= len(m.script) {
		return ScriptedResponse{}, errors.NewPermanentError(stderrors.New("mock script exhausted"), "no scripted response left")
	}
	s := m.script[m.next]
	m.next++
	return s, nil
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := m.take(req)
	if err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := m.take(req)
	if err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if callbacks.OnContentDelta != nil {
		for _, d := range s.Deltas {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			callbacks.OnContentDelta(d)
		}
		callbacks.OnContentDelta(ContentDelta{MessageID: s.Response.MessageID, Final: true})
	}
	return s.Response, nil
}
