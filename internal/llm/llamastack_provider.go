package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
)

// LlamaStackProvider talks to a Llama Stack deployment over its REST API:
// the responses endpoint for the tool-augmented diagnostics call, and the
// agents endpoints for the RAG correlation session. Model selection, MCP
// endpoint discovery and the RAG agent registration are computed once per
// process and then read-only.
type LlamaStackProvider struct {
	settings *config.Settings
	client   *http.Client
	policy   runtimePolicy

	mu       sync.Mutex
	modelID  string
	mcpURL   string
	mcpLabel string
	agentID  string
}

func NewLlamaStackProvider(settings *config.Settings) *LlamaStackProvider {
	return &LlamaStackProvider{
		settings: settings,
		client:   http.DefaultClient,
		policy:   loadRuntimePolicyFromEnv(),
	}
}

func (p *LlamaStackProvider) Name() string {
	return "llamastack"
}

// SelectModel resolves the inference model. Preference order: the configured
// model ID when present on the backend, then the first vllm-inference LLM,
// then any LLM.
func (p *LlamaStackProvider) SelectModel(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modelID != "" {
		return p.modelID, nil
	}

	var listed struct {
		Data []ModelInfo `json:"data"`
	}
	if err := p.doJSON(ctx, http.MethodGet, "/v1/models", nil, &listed); err != nil {
		return "", err
	}

	if preferred := p.settings.PreferredModelID; preferred != "" {
		for _, m := range listed.Data {
			if modelIdentifier(m) == preferred {
				p.modelID = preferred
				return p.modelID, nil
			}
		}
		log.Printf("component=provider provider=llamastack msg=\"preferred model %s not found; falling back to auto-select\"", preferred)
	}

	for _, m := range listed.Data {
		if m.ModelType == "llm" && m.ProviderID == "vllm-inference" {
			p.modelID = modelIdentifier(m)
			return p.modelID, nil
		}
	}
	for _, m := range listed.Data {
		if m.ModelType == "llm" {
			p.modelID = modelIdentifier(m)
			return p.modelID, nil
		}
	}
	return "", errors.New("no LLM models available on Llama Stack")
}

func modelIdentifier(m ModelInfo) string {
	if m.Identifier != "" {
		return m.Identifier
	}
	return m.ModelID
}

// ResolveMCPServer returns the MCP server URL and label. An explicit URL in
// settings wins; otherwise the backend's toolgroup listing is consulted for
// the configured toolgroup's mcp_endpoint.
func (p *LlamaStackProvider) ResolveMCPServer(ctx context.Context) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mcpURL != "" {
		return p.mcpURL, p.mcpLabel, nil
	}

	serverURL := p.settings.MCPServerURL
	if serverURL == "" {
		var listed struct {
			Data []struct {
				Identifier  string `json:"identifier"`
				MCPEndpoint struct {
					URI string `json:"uri"`
				} `json:"mcp_endpoint"`
			} `json:"data"`
		}
		if err := p.doJSON(ctx, http.MethodGet, "/v1/toolgroups", nil, &listed); err == nil {
			for _, group := range listed.Data {
				if group.Identifier == p.settings.MCPToolgroupID && group.MCPEndpoint.URI != "" {
					serverURL = group.MCPEndpoint.URI
					break
				}
			}
		}
	}
	if serverURL == "" {
		return "", "", errors.New("MCP server URL not configured. Set MCP_SERVER_URL/REMOTE_OCP_MCP_URL or ensure toolgroup discovery works")
	}

	p.mcpURL = strings.TrimRight(serverURL, "/")
	p.mcpLabel = p.settings.MCPServerLabel
	return p.mcpURL, p.mcpLabel, nil
}

func (p *LlamaStackProvider) Respond(ctx context.Context, req ResponseRequest) (*Response, error) {
	return observeProviderOperation(ctx, p.Name(), "respond", func() (*Response, error) {
		var response Response
		if err := p.doJSON(ctx, http.MethodPost, "/v1/responses", req, &response); err != nil {
			return nil, err
		}
		return &response, nil
	})
}

func (p *LlamaStackProvider) CreateSession(ctx context.Context, name string) (Session, error) {
	return observeProviderOperation(ctx, p.Name(), "create_session", func() (Session, error) {
		agentID, err := p.ensureRAGAgent(ctx)
		if err != nil {
			return Session{}, err
		}
		payload := map[string]string{"session_name": name}
		var session Session
		if err := p.doJSON(ctx, http.MethodPost, "/v1/agents/"+agentID+"/session", payload, &session); err != nil {
			return Session{}, err
		}
		if session.ID == "" {
			return Session{}, errors.New("llamastack returned a session without an id")
		}
		return session, nil
	})
}

func (p *LlamaStackProvider) CreateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return observeProviderOperation(ctx, p.Name(), "create_turn", func() (*TurnResult, error) {
		agentID, err := p.ensureRAGAgent(ctx)
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"messages": req.Messages,
			"stream":   req.Stream,
		}
		var turn TurnResult
		path := "/v1/agents/" + agentID + "/session/" + req.SessionID + "/turn"
		if err := p.doJSON(ctx, http.MethodPost, path, payload, &turn); err != nil {
			return nil, err
		}
		return &turn, nil
	})
}

// ensureRAGAgent registers the RAG-only agent once. Base instructions stay
// empty: the correlation guidance is supplied per-turn by the pipeline.
func (p *LlamaStackProvider) ensureRAGAgent(ctx context.Context) (string, error) {
	model, err := p.SelectModel(ctx)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.agentID != "" {
		return p.agentID, nil
	}

	var tools []Tool
	if len(p.settings.VectorStoreIDs) > 0 {
		tools = append(tools, Tool{Type: "file_search", VectorStoreIDs: p.settings.VectorStoreIDs})
	}

	payload := map[string]any{
		"agent_config": map[string]any{
			"model":        model,
			"instructions": "",
			"tools":        tools,
		},
	}
	var created struct {
		AgentID string `json:"agent_id"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/v1/agents", payload, &created); err != nil {
		return "", err
	}
	if created.AgentID == "" {
		return "", errors.New("llamastack returned an agent without an id")
	}
	p.agentID = created.AgentID
	return p.agentID, nil
}

func (p *LlamaStackProvider) doJSON(ctx context.Context, method string, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = encoded
	}

	totalAttempts := p.policy.maxRetries + 1
	for attempt := 0; attempt < totalAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.policy.timeout)

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		request, err := http.NewRequestWithContext(attemptCtx, method, p.settings.LlamaBaseURL+path, reader)
		if err != nil {
			cancel()
			return err
		}
		if body != nil {
			request.Header.Set("Content-Type", "application/json")
		}

		response, err := p.client.Do(request)
		if err != nil {
			cancel()
			if shouldRetryError(err) && attempt < totalAttempts-1 {
				if waitErr := waitForBackoff(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		if response.StatusCode >= http.StatusBadRequest {
			responseBytes, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
			_ = response.Body.Close()
			cancel()

			httpErr := &providerHTTPError{
				provider:   "llamastack",
				statusCode: response.StatusCode,
				message:    strings.TrimSpace(string(responseBytes)),
			}
			if shouldRetryHTTPStatus(response.StatusCode) && attempt < totalAttempts-1 {
				if waitErr := waitForBackoff(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return httpErr
		}

		decodeErr := json.NewDecoder(response.Body).Decode(out)
		_ = response.Body.Close()
		cancel()
		if decodeErr != nil {
			if shouldRetryError(decodeErr) && attempt < totalAttempts-1 {
				if waitErr := waitForBackoff(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return decodeErr
		}
		return nil
	}

	return fmt.Errorf("llamastack %s %s failed after retries", method, path)
}
