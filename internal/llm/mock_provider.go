package llm

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MockProvider returns deterministic output so the pipeline, handlers and CLI
// can run without a backend.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) SelectModel(_ context.Context) (string, error) {
	return "mock-llm", nil
}

func (m *MockProvider) ResolveMCPServer(_ context.Context) (string, string, error) {
	return "http://mock-mcp.local", "kubernetes-mcp", nil
}

func (m *MockProvider) Respond(ctx context.Context, req ResponseRequest) (*Response, error) {
	return observeProviderOperation(ctx, m.Name(), "respond", func() (*Response, error) {
		question := lastUserContent(req.Input)
		text := "[mock diagnostics] Investigated: " + question + "\n" +
			"* pod status checked\n" +
			"* recent events reviewed"
		return &Response{
			Output: []OutputItem{
				{Type: "message", Content: []ContentPart{{Type: "output_text", Text: text}}},
			},
		}, nil
	})
}

func (m *MockProvider) CreateSession(ctx context.Context, name string) (Session, error) {
	return observeProviderOperation(ctx, m.Name(), "create_session", func() (Session, error) {
		return Session{ID: name + "-" + uuid.NewString()[:8]}, nil
	})
}

func (m *MockProvider) CreateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return observeProviderOperation(ctx, m.Name(), "create_turn", func() (*TurnResult, error) {
		text := "Mock correlation of cluster findings with the knowledge base.\n" +
			"### JSON_START\n" +
			`{"probable_cause": "mock probable cause", "next_steps": [{"command": "kubectl get pods -A"}]}` + "\n" +
			"### JSON_END"
		return &TurnResult{OutputText: text}, nil
	})
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
