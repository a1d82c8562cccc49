// Package agents drives the two-phase diagnosis pipeline: a tool-augmented
// MCP call against the live cluster, then a retrieval-augmented correlation
// turn against the knowledge base.
package agents

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/domain"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/findings"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/llm"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/metrics"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/middleware"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/report"
)

const maxInferIterations = 8

// Some models echo their tool invocations as lines like [resources_get(...)].
var toolCallEchoRe = regexp.MustCompile(`^\s*\[[A-Za-z_]+\(`)

type Pipeline struct {
	settings *config.Settings
	provider llm.Provider
}

func NewPipeline(settings *config.Settings, provider llm.Provider) *Pipeline {
	return &Pipeline{
		settings: settings,
		provider: provider,
	}
}

func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// Health resolves the compute-once lookups the pipeline depends on and
// reports them.
func (p *Pipeline) Health(ctx context.Context) (domain.HealthResponse, error) {
	model, err := p.provider.SelectModel(ctx)
	if err != nil {
		return domain.HealthResponse{}, err
	}
	mcpURL, _, err := p.provider.ResolveMCPServer(ctx)
	if err != nil {
		return domain.HealthResponse{}, err
	}
	return domain.HealthResponse{
		Status:         "ok",
		Model:          model,
		VectorStoreIDs: p.settings.VectorStoreIDs,
		MCPServerURL:   mcpURL,
	}, nil
}

// Run executes one diagnosis. Phase failures abort with a typed error; text
// and JSON extraction never abort, they degrade to weaker report output.
func (p *Pipeline) Run(ctx context.Context, payload any) (domain.PipelineResult, error) {
	requestID := middleware.GetRequestIDFromContext(ctx)
	if requestID == "" {
		requestID = shortID(8)
	}
	log.Printf("request_id=%s component=pipeline event=start", requestID)

	// Missing prompt configuration must surface before any remote call.
	if err := p.settings.Validate(); err != nil {
		return domain.PipelineResult{}, err
	}

	question := DeriveIncidentQuestion(payload)

	started := time.Now()
	mcpFindings, err := p.runDiagnostics(ctx, question)
	if err != nil {
		metrics.RecordPipelineRun("diagnostics", "error", time.Since(started))
		log.Printf("request_id=%s component=pipeline phase=diagnostics status=error err=%v", requestID, err)
		return domain.PipelineResult{}, &DiagnosticsError{Err: err}
	}
	metrics.RecordPipelineRun("diagnostics", "success", time.Since(started))

	started = time.Now()
	sessionID, explanation, structured, err := p.runCorrelation(ctx, question, mcpFindings)
	if err != nil {
		metrics.RecordPipelineRun("correlation", "error", time.Since(started))
		log.Printf("request_id=%s component=pipeline phase=correlation status=error err=%v", requestID, err)
		return domain.PipelineResult{}, &CorrelationError{Err: err}
	}
	metrics.RecordPipelineRun("correlation", "success", time.Since(started))

	worknotes := report.BuildWorknotes(mcpFindings, explanation, structured)

	log.Printf(
		"request_id=%s component=pipeline event=done mcp_chars=%d rag_chars=%d",
		requestID,
		len(mcpFindings),
		len(explanation),
	)

	return domain.PipelineResult{
		SessionID:                      sessionID,
		Incident:                       payload,
		MCPFindings:                    mcpFindings,
		KnowledgeBaseRAGCrossReference: explanation,
		Worknotes:                      worknotes,
		OutputAsJSON:                   structured,
	}, nil
}

// runDiagnostics is phase 1: the tool-augmented call with live MCP access.
func (p *Pipeline) runDiagnostics(ctx context.Context, question string) (string, error) {
	model, err := p.provider.SelectModel(ctx)
	if err != nil {
		return "", err
	}
	mcpURL, mcpLabel, err := p.provider.ResolveMCPServer(ctx)
	if err != nil {
		return "", err
	}

	response, err := p.provider.Respond(ctx, llm.ResponseRequest{
		Model: model,
		Input: []llm.Message{
			{Role: "system", Content: p.settings.MCPPrompt},
			{Role: "user", Content: question},
		},
		Tools: []llm.Tool{{
			Type:            "mcp",
			ServerURL:       mcpURL,
			ServerLabel:     mcpLabel,
			RequireApproval: "never",
		}},
		Temperature:   0,
		MaxInferIters: maxInferIterations,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(llm.ExtractText(response))
	return stripToolCallEchoes(text), nil
}

// runCorrelation is phase 2: a turn in a fresh agent session with retrieval
// access, correlating the findings with the knowledge base.
func (p *Pipeline) runCorrelation(ctx context.Context, question string, mcpFindings string) (string, string, domain.Findings, error) {
	session, err := p.provider.CreateSession(ctx, "k8s-diag-"+shortID(6))
	if err != nil {
		return "", "", nil, err
	}

	findingsText := mcpFindings
	if findingsText == "" {
		findingsText = "(none)"
	}

	turn, err := p.provider.CreateTurn(ctx, llm.TurnRequest{
		SessionID: session.ID,
		Messages: []llm.Message{
			{Role: "system", Content: p.settings.RAGPrompt},
			{
				Role: "user",
				Content: "Incident description:\n" + question +
					"\n\nCluster findings from MCP diagnostics:\n" + findingsText,
			},
		},
		Stream: false,
	})
	if err != nil {
		return "", "", nil, err
	}

	rawText := strings.TrimSpace(llm.ExtractTurnText(turn))
	explanation, structured := findings.Split(rawText)
	return session.ID, explanation, structured, nil
}

// stripToolCallEchoes drops stray pseudo tool-call lines. Purely cosmetic;
// most responses have none.
func stripToolCallEchoes(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if toolCallEchoRe.MatchString(line) && strings.HasSuffix(strings.TrimSpace(line), ")") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func shortID(length int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length > len(id) {
		length = len(id)
	}
	return id[:length]
}
