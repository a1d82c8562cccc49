package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/llm"
)

// fakeProvider scripts both phases and records what the pipeline asked for.
type fakeProvider struct {
	respondText  string
	respondErr   error
	turnText     string
	turnErr      error
	sessionErr   error
	respondCalls int
	turnCalls    int
	lastRequest  llm.ResponseRequest
	lastTurn     llm.TurnRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SelectModel(context.Context) (string, error) {
	return "fake-llm", nil
}

func (f *fakeProvider) ResolveMCPServer(context.Context) (string, string, error) {
	return "http://mcp.test", "kubernetes-mcp", nil
}

func (f *fakeProvider) Respond(_ context.Context, req llm.ResponseRequest) (*llm.Response, error) {
	f.respondCalls++
	f.lastRequest = req
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	return &llm.Response{OutputText: f.respondText}, nil
}

func (f *fakeProvider) CreateSession(_ context.Context, name string) (llm.Session, error) {
	if f.sessionErr != nil {
		return llm.Session{}, f.sessionErr
	}
	return llm.Session{ID: name}, nil
}

func (f *fakeProvider) CreateTurn(_ context.Context, req llm.TurnRequest) (*llm.TurnResult, error) {
	f.turnCalls++
	f.lastTurn = req
	if f.turnErr != nil {
		return nil, f.turnErr
	}
	return &llm.TurnResult{OutputText: f.turnText}, nil
}

func testSettings() *config.Settings {
	return &config.Settings{
		Port:           "8080",
		Provider:       "mock",
		LlamaBaseURL:   "http://llama.test",
		MCPServerLabel: "kubernetes-mcp",
		MCPToolgroupID: "mcp::kubernetes",
		MCPPrompt:      "diagnose the cluster",
		RAGPrompt:      "correlate with the knowledge base",
		VectorStoreIDs: []string{"vs-1"},
	}
}

func TestPipelineRunHappyPath(t *testing.T) {
	provider := &fakeProvider{
		respondText: "* pod payments-7d is CrashLoopBackOff",
		turnText: "Correlated with KB.\n### JSON_START\n" +
			`{"probable_cause": "bad image tag", "next_steps": [{"command": "kubectl rollout undo deploy/payments"}]}` +
			"\n### JSON_END",
	}
	pipeline := NewPipeline(testSettings(), provider)

	result, err := pipeline.Run(context.Background(), "payments pods crash looping")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.MCPFindings != "* pod payments-7d is CrashLoopBackOff" {
		t.Fatalf("unexpected findings: %q", result.MCPFindings)
	}
	if result.KnowledgeBaseRAGCrossReference != "Correlated with KB." {
		t.Fatalf("unexpected explanation: %q", result.KnowledgeBaseRAGCrossReference)
	}
	if result.OutputAsJSON.ProbableCause() != "bad image tag" {
		t.Fatalf("unexpected structured findings: %+v", result.OutputAsJSON)
	}
	if !strings.HasPrefix(result.SessionID, "k8s-diag-") {
		t.Fatalf("unexpected session id: %q", result.SessionID)
	}
	if result.Incident != "payments pods crash looping" {
		t.Fatalf("incident must echo the input, got %v", result.Incident)
	}
	if !strings.Contains(result.Worknotes, "[code]") || !strings.Contains(result.Worknotes, "bad image tag") {
		t.Fatalf("unexpected worknotes: %s", result.Worknotes)
	}
}

func TestPipelineDiagnosticsRequestShape(t *testing.T) {
	provider := &fakeProvider{respondText: "findings", turnText: "text"}
	pipeline := NewPipeline(testSettings(), provider)

	if _, err := pipeline.Run(context.Background(), "incident"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	req := provider.lastRequest
	if req.Model != "fake-llm" {
		t.Fatalf("unexpected model: %q", req.Model)
	}
	if req.Temperature != 0 {
		t.Fatalf("diagnostics must run at temperature zero, got %v", req.Temperature)
	}
	if req.MaxInferIters != maxInferIterations {
		t.Fatalf("unexpected iteration cap: %d", req.MaxInferIters)
	}
	if len(req.Tools) != 1 || req.Tools[0].Type != "mcp" || req.Tools[0].RequireApproval != "never" {
		t.Fatalf("unexpected tool config: %+v", req.Tools)
	}
	if len(req.Input) != 2 || req.Input[0].Role != "system" || req.Input[1].Content != "incident" {
		t.Fatalf("unexpected messages: %+v", req.Input)
	}
}

func TestPipelineCorrelationEmbedsFindings(t *testing.T) {
	provider := &fakeProvider{respondText: "cluster findings here", turnText: "text"}
	pipeline := NewPipeline(testSettings(), provider)

	if _, err := pipeline.Run(context.Background(), "incident"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	user := provider.lastTurn.Messages[1].Content
	if !strings.Contains(user, "Incident description:\nincident") {
		t.Fatalf("correlation prompt missing incident: %q", user)
	}
	if !strings.Contains(user, "Cluster findings from MCP diagnostics:\ncluster findings here") {
		t.Fatalf("correlation prompt missing findings: %q", user)
	}
	if provider.lastTurn.Stream {
		t.Fatalf("turns must not stream")
	}
}

func TestPipelineEmptyFindingsUseNonePlaceholder(t *testing.T) {
	provider := &fakeProvider{respondText: "", turnText: "text"}
	pipeline := NewPipeline(testSettings(), provider)

	if _, err := pipeline.Run(context.Background(), "incident"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	user := provider.lastTurn.Messages[1].Content
	if !strings.Contains(user, "Cluster findings from MCP diagnostics:\n(none)") {
		t.Fatalf("expected (none) placeholder, got %q", user)
	}
}

func TestPipelineDiagnosticsFailureSkipsCorrelation(t *testing.T) {
	provider := &fakeProvider{respondErr: errors.New("backend down")}
	pipeline := NewPipeline(testSettings(), provider)

	_, err := pipeline.Run(context.Background(), "incident")
	var diagErr *DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("expected DiagnosticsError, got %v", err)
	}
	if !strings.Contains(err.Error(), "MCP diagnostics failed") {
		t.Fatalf("unexpected error message: %v", err)
	}
	if !errors.Is(err, provider.respondErr) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if provider.turnCalls != 0 {
		t.Fatalf("correlation must not run after diagnostics failure")
	}
}

func TestPipelineCorrelationFailure(t *testing.T) {
	provider := &fakeProvider{respondText: "findings", turnErr: errors.New("session expired")}
	pipeline := NewPipeline(testSettings(), provider)

	_, err := pipeline.Run(context.Background(), "incident")
	var corrErr *CorrelationError
	if !errors.As(err, &corrErr) {
		t.Fatalf("expected CorrelationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "RAG correlation failed") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestPipelineMissingPromptFailsBeforeAnyCall(t *testing.T) {
	settings := testSettings()
	settings.MCPPrompt = ""
	provider := &fakeProvider{respondText: "findings", turnText: "text"}
	pipeline := NewPipeline(settings, provider)

	if _, err := pipeline.Run(context.Background(), "incident"); err == nil {
		t.Fatalf("expected configuration error")
	}
	if provider.respondCalls != 0 || provider.turnCalls != 0 {
		t.Fatalf("no remote call may happen with missing prompts")
	}
}

func TestStripToolCallEchoes(t *testing.T) {
	input := "real finding\n  [resources_get(kind=Pod, namespace=payments)  \nanother finding\n[not_a_call( unfinished"
	got := stripToolCallEchoes(input)

	if strings.Contains(got, "resources_get") {
		t.Fatalf("echo line survived: %q", got)
	}
	if !strings.Contains(got, "real finding") || !strings.Contains(got, "another finding") {
		t.Fatalf("real lines must survive: %q", got)
	}
	if !strings.Contains(got, "[not_a_call( unfinished") {
		t.Fatalf("lines not ending in ')' must survive: %q", got)
	}
}
