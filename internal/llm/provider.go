package llm

import (
	"context"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes a tool made available to a responses call. The diagnostics
// phase passes a single MCP descriptor; the RAG agent carries a file_search
// tool over the configured vector stores.
type Tool struct {
	Type            string   `json:"type"`
	ServerURL       string   `json:"server_url,omitempty"`
	ServerLabel     string   `json:"server_label,omitempty"`
	RequireApproval string   `json:"require_approval,omitempty"`
	VectorStoreIDs  []string `json:"vector_store_ids,omitempty"`
}

// ResponseRequest is a tool-augmented model call.
type ResponseRequest struct {
	Model         string    `json:"model"`
	Input         []Message `json:"input"`
	Tools         []Tool    `json:"tools,omitempty"`
	Temperature   float64   `json:"temperature"`
	MaxInferIters int       `json:"max_infer_iters,omitempty"`
}

// ContentPart is one entry of a message item's content list.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// OutputItem is one entry of a response's output sequence. Non-message items
// (tool calls, tool results) carry a different Type and no usable text.
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentPart `json:"content"`
}

// Response mirrors the Llama Stack responses payload. The extractor in
// extract.go also accepts raw map mirrors of this shape.
type Response struct {
	ID         string       `json:"id"`
	Output     []OutputItem `json:"output"`
	OutputText string       `json:"output_text"`
}

// Session identifies one agent session on the backend.
type Session struct {
	ID string `json:"session_id"`
}

// TurnRequest is one turn executed within an agent session.
type TurnRequest struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
}

// TurnResult mirrors a session-turn payload; it carries either the responses
// shape or a flat text field depending on backend version.
type TurnResult struct {
	OutputText string       `json:"output_text"`
	Output     []OutputItem `json:"output"`
	Text       string       `json:"text"`
}

// ModelInfo is one entry of the backend's model list.
type ModelInfo struct {
	Identifier string `json:"identifier"`
	ModelID    string `json:"model_id"`
	ModelType  string `json:"model_type"`
	ProviderID string `json:"provider_id"`
}

// Provider is the model-call and session capability the pipeline depends on.
// SelectModel and ResolveMCPServer are compute-once lookups; implementations
// memoize them for the process lifetime.
type Provider interface {
	Name() string
	SelectModel(ctx context.Context) (string, error)
	ResolveMCPServer(ctx context.Context) (url string, label string, err error)
	Respond(ctx context.Context, req ResponseRequest) (*Response, error)
	CreateSession(ctx context.Context, name string) (Session, error)
	CreateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
}

// NewProviderFromSettings picks the provider implementation. Unknown values
// fall back to the mock so local development always has something to run
// against, matching how the server degrades when no backend is reachable.
func NewProviderFromSettings(settings *config.Settings) Provider {
	switch settings.Provider {
	case "gemini":
		if provider, err := NewGeminiProviderFromEnv(settings); err == nil {
			return provider
		}
		return NewMockProvider()
	case "mock":
		return NewMockProvider()
	default:
		return NewLlamaStackProvider(settings)
	}
}
