package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
)

// GeminiProvider runs the pipeline against the Gemini API for deployments
// without a Llama Stack. It cannot execute MCP tools or search the vector
// stores, so diagnostics come from model knowledge only; sessions are local
// identifiers with the turn history kept in memory for the process lifetime.
type GeminiProvider struct {
	model    string
	client   *genai.Client
	settings *config.Settings

	mu       sync.Mutex
	sessions map[string][]Message
}

func NewGeminiProviderFromEnv(settings *config.Settings) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	}
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
	}

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &GeminiProvider{
		model:    model,
		client:   client,
		settings: settings,
		sessions: make(map[string][]Message),
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) SelectModel(_ context.Context) (string, error) {
	return g.model, nil
}

// ResolveMCPServer still reports the configured URL so health output stays
// meaningful, but Respond does not forward tool descriptors to Gemini.
func (g *GeminiProvider) ResolveMCPServer(_ context.Context) (string, string, error) {
	if g.settings.MCPServerURL == "" {
		return "", "", errors.New("MCP server URL not configured. Set MCP_SERVER_URL/REMOTE_OCP_MCP_URL")
	}
	return g.settings.MCPServerURL, g.settings.MCPServerLabel, nil
}

func (g *GeminiProvider) Respond(ctx context.Context, req ResponseRequest) (*Response, error) {
	return observeProviderOperation(ctx, g.Name(), "respond", func() (*Response, error) {
		text, err := g.generate(ctx, req.Input)
		if err != nil {
			return nil, err
		}
		return &Response{OutputText: text}, nil
	})
}

func (g *GeminiProvider) CreateSession(ctx context.Context, name string) (Session, error) {
	return observeProviderOperation(ctx, g.Name(), "create_session", func() (Session, error) {
		id := name + "-" + uuid.NewString()[:8]
		g.mu.Lock()
		g.sessions[id] = nil
		g.mu.Unlock()
		return Session{ID: id}, nil
	})
}

func (g *GeminiProvider) CreateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return observeProviderOperation(ctx, g.Name(), "create_turn", func() (*TurnResult, error) {
		g.mu.Lock()
		history, ok := g.sessions[req.SessionID]
		g.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("unknown session %q", req.SessionID)
		}

		messages := append(append([]Message(nil), history...), req.Messages...)
		text, err := g.generate(ctx, messages)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.sessions[req.SessionID] = append(messages, Message{Role: "assistant", Content: text})
		g.mu.Unlock()

		return &TurnResult{OutputText: text}, nil
	})
}

func (g *GeminiProvider) generate(ctx context.Context, messages []Message) (string, error) {
	var builder strings.Builder
	for _, message := range messages {
		if message.Role == "system" {
			builder.WriteString(message.Content + "\n\n")
			continue
		}
		builder.WriteString(message.Content + "\n")
	}

	response, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(builder.String()),
		nil,
	)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
